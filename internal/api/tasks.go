package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

// taskRequest is the body of POST /v1/tasks and PUT /v1/tasks/{id}.
type taskRequest struct {
	TaskName      string      `json:"taskName"`
	Delay         int         `json:"delay"`
	JobConditions *rules.Tree `json:"jobConditions,omitempty"`
}

func (req taskRequest) input() tasks.Input {
	return tasks.Input{
		TaskName:      req.TaskName,
		Delay:         req.Delay,
		JobConditions: req.JobConditions,
	}
}

// handleListTasks serves the current snapshot. Clients revalidate with
// If-None-Match.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", snap.ETag)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req, false, "expected fields 'taskName', 'delay' and optional 'jobConditions'") {
		return
	}

	task, err := s.tasks.Create(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req, false, "expected fields 'taskName', 'delay' and optional 'jobConditions'") {
		return
	}

	task, err := s.tasks.Update(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.tasks.Start)
}

func (s *Server) handleStopTask(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.tasks.Stop)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.tasks.Complete)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*store.Task, error)) {
	task, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
