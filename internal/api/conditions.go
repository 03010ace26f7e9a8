package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/jobwatch/internal/rules"
)

// subConditionRequest is the optional body of
// POST /v1/tasks/{id}/groups/{groupId}/conditions. Omitted fields keep
// their defaults.
type subConditionRequest struct {
	Target          *string `json:"target,omitempty"`
	Operator        *string `json:"operator,omitempty"`
	Frequency       *int    `json:"frequency,omitempty"`
	Text            *string `json:"text,omitempty"`
	Not             *bool   `json:"not,omitempty"`
	CaseInsensitive *bool   `json:"caseInsensitive,omitempty"`
}

// empty reports whether no field was supplied.
func (req subConditionRequest) empty() bool {
	return req.Target == nil && req.Operator == nil && req.Frequency == nil &&
		req.Text == nil && req.Not == nil && req.CaseInsensitive == nil
}

// subCondition applies the supplied fields over the defaults. Unparseable
// target or operator values are kept verbatim so tree validation reports
// them against the right field.
func (req subConditionRequest) subCondition() rules.SubCondition {
	sub := rules.NewSubCondition()
	if req.Target != nil {
		sub.Target = rules.Target(*req.Target)
		if t, ok := rules.ParseTarget(*req.Target); ok {
			sub.Target = t
		}
	}
	if req.Operator != nil {
		sub.Operator = rules.Operator(*req.Operator)
		if op, ok := rules.ParseOperator(*req.Operator); ok {
			sub.Operator = op
		}
	}
	if req.Frequency != nil {
		sub.Frequency = *req.Frequency
	}
	if req.Text != nil {
		sub.Text = *req.Text
	}
	if req.Not != nil {
		sub.Not = *req.Not
	}
	if req.CaseInsensitive != nil {
		sub.CaseInsensitive = *req.CaseInsensitive
	}
	return sub
}

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.EditConditions(r.Context(), chi.URLParam(r, "id"), func(t rules.Tree) (rules.Tree, error) {
		return rules.AddGroup(t), nil
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// handleRemoveGroup answers 409 when the group is the task's last one.
func (s *Server) handleRemoveGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	task, err := s.tasks.EditConditions(r.Context(), chi.URLParam(r, "id"), func(t rules.Tree) (rules.Tree, error) {
		return rules.RemoveGroup(t, groupID)
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleAddSubCondition(w http.ResponseWriter, r *http.Request) {
	var req subConditionRequest
	if !decodeJSON(w, r, &req, true, "expected a sub-condition object or an empty body") {
		return
	}

	var sub *rules.SubCondition
	if !req.empty() {
		sc := req.subCondition()
		sub = &sc
	}

	groupID := chi.URLParam(r, "groupId")
	task, err := s.tasks.EditConditions(r.Context(), chi.URLParam(r, "id"), func(t rules.Tree) (rules.Tree, error) {
		return rules.AddSubCondition(t, groupID, sub)
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleRemoveSubCondition(w http.ResponseWriter, r *http.Request) {
	groupID, subID := chi.URLParam(r, "groupId"), chi.URLParam(r, "subId")
	task, err := s.tasks.EditConditions(r.Context(), chi.URLParam(r, "id"), func(t rules.Tree) (rules.Tree, error) {
		return rules.RemoveSubCondition(t, groupID, subID), nil
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
