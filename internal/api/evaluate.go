package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/jobwatch/internal/engine"
	"github.com/TimurManjosov/jobwatch/internal/evaluation"
	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/telemetry"
	"github.com/TimurManjosov/jobwatch/internal/validation"
)

// MaxBatchPostings caps the postings accepted by one batch check.
const MaxBatchPostings = 1000

// handleCheckTask handles POST /v1/tasks/{id}/check: evaluate the stored
// conditions of a task against one posting.
func (s *Server) handleCheckTask(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decodeJSON(w, r, &req, false, "expected field 'fields'") {
		return
	}
	if res := validation.ValidateFields(req.Fields); !res.Valid {
		ValidationError(w, r, "Validation failed for one or more fields", res.Errors)
		return
	}

	task, err := s.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result := engine.Evaluate(task.JobConditions, engine.FieldsFromMap(req.Fields))
	telemetry.ObserveEvaluation(result.Satisfied)

	writeJSON(w, http.StatusOK, CheckResponse{TaskID: task.ID, Result: result})
}

// handleCheck handles POST /v1/check: evaluate an inline tree, e.g. one
// still being edited, against one posting.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decodeJSON(w, r, &req, false, "expected fields 'jobConditions' and 'fields'") {
		return
	}

	tree, fields := checkTree(req.JobConditions)
	fields.Merge(validation.ValidateFields(req.Fields))
	if !fields.Valid {
		ValidationError(w, r, "Validation failed for one or more fields", fields.Errors)
		return
	}

	result := engine.Evaluate(tree, engine.FieldsFromMap(req.Fields))
	telemetry.ObserveEvaluation(result.Satisfied)

	writeJSON(w, http.StatusOK, CheckResponse{Result: result})
}

// handleCheckBatch handles POST /v1/check/batch.
func (s *Server) handleCheckBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCheckRequest
	if !decodeJSON(w, r, &req, false, "expected fields 'jobConditions' and 'postings'") {
		return
	}

	tree, fields := checkTree(req.JobConditions)
	if len(req.Postings) > MaxBatchPostings {
		fields.AddError("postings", "At most "+strconv.Itoa(MaxBatchPostings)+" postings per batch.")
	}
	for i, p := range req.Postings {
		res := validation.ValidateFields(p.Fields)
		for k, msg := range res.Errors {
			fields.AddError("postings["+strconv.Itoa(i)+"]."+k, msg)
		}
	}
	if !fields.Valid {
		ValidationError(w, r, "Validation failed for one or more fields", fields.Errors)
		return
	}

	results := evaluation.EvaluateAll(tree, req.Postings)
	telemetry.ObserveBatch(results)

	writeJSON(w, http.StatusOK, BatchCheckResponse{
		Results: results,
		Matched: evaluation.Matched(results),
	})
}

// checkTree normalizes an inline tree and validates it for evaluation.
func checkTree(in *rules.Tree) (rules.Tree, *validation.ValidationResult) {
	if in == nil {
		res := validation.NewValidationResult()
		res.AddError("jobConditions", "Job conditions are required.")
		return rules.Tree{}, res
	}
	tree := rules.Normalize(*in)
	return tree, validation.ValidateJobConditions(tree)
}
