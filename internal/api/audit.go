package api

import (
	"net/http"
	"strconv"

	"github.com/TimurManjosov/jobwatch/internal/audit"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditResponse is the body of GET /v1/audit.
type AuditResponse struct {
	Events []audit.Event `json:"events"`
}

// handleListAudit handles GET /v1/audit?task=<id>&limit=<n>, newest first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			ValidationError(w, r, "Validation failed for one or more fields", map[string]string{
				"limit": "Limit must be a number between 1 and 500.",
			})
			return
		}
		limit = n
	}

	events := []audit.Event{}
	if s.audit != nil {
		events = s.audit.List(r.URL.Query().Get("task"), limit)
	}
	writeJSON(w, http.StatusOK, AuditResponse{Events: events})
}
