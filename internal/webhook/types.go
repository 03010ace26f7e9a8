package webhook

import (
	"time"

	"github.com/TimurManjosov/jobwatch/internal/store"
)

// Event types that can trigger webhooks
const (
	EventTaskCreated       = "task.created"
	EventTaskUpdated       = "task.updated"
	EventTaskDeleted       = "task.deleted"
	EventTaskStatusChanged = "task.status_changed"
)

// Event represents a webhook event that will be sent to every configured endpoint
type Event struct {
	Type      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Resource  Resource  `json:"resource"`
	Data      EventData `json:"data"`
	Metadata  Metadata  `json:"metadata"`
}

// Resource identifies the resource that triggered the event
type Resource struct {
	Type string `json:"type"` // always "task" for now
	ID   string `json:"id"`
}

// EventData contains the before/after state and changes
type EventData struct {
	Before  *store.Task    `json:"before,omitempty"`
	After   *store.Task    `json:"after,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`
}

// Metadata contains additional context about the event
type Metadata struct {
	RequestID string `json:"requestId,omitempty"`
}

// Delivery describes the outcome of delivering one event to one endpoint.
type Delivery struct {
	ID         string
	URL        string
	EventType  string
	StatusCode int
	Attempts   int
	Duration   time.Duration
	Success    bool
	Err        error
}
