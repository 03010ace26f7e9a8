package api

import (
	"github.com/TimurManjosov/jobwatch/internal/engine"
	"github.com/TimurManjosov/jobwatch/internal/evaluation"
	"github.com/TimurManjosov/jobwatch/internal/rules"
)

// CheckRequest is the request payload for POST /v1/check and, without
// JobConditions, for POST /v1/tasks/{id}/check.
type CheckRequest struct {
	JobConditions *rules.Tree       `json:"jobConditions,omitempty"`
	Fields        map[string]string `json:"fields"`
}

// CheckResponse is the response payload of a single-posting check.
type CheckResponse struct {
	TaskID string        `json:"taskId,omitempty"`
	Result engine.Result `json:"result"`
}

// BatchCheckRequest is the request payload for POST /v1/check/batch.
type BatchCheckRequest struct {
	JobConditions *rules.Tree          `json:"jobConditions"`
	Postings      []evaluation.Posting `json:"postings"`
}

// BatchCheckResponse lists per-posting results and the accepted ids.
type BatchCheckResponse struct {
	Results []evaluation.PostingResult `json:"results"`
	Matched []string                   `json:"matched"`
}
