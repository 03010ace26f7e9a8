package tasks

import (
	"context"
	"time"

	"github.com/TimurManjosov/jobwatch/internal/store"
)

// EventType names a task change.
type EventType string

const (
	EventCreated       EventType = "task.created"
	EventUpdated       EventType = "task.updated"
	EventDeleted       EventType = "task.deleted"
	EventStatusChanged EventType = "task.status_changed"
)

// Event describes a successful task change. Before is nil for creations.
type Event struct {
	Type      EventType
	Task      store.Task
	Before    *store.Task
	Timestamp time.Time
}

// Listener receives task events. Listeners run synchronously after the
// change is persisted and must not block; hand slow work to a queue.
type Listener func(ctx context.Context, ev Event)

// OnEvent registers a listener for all subsequent task changes.
func (s *Service) OnEvent(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// publish must be called with s.mu held.
func (s *Service) publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	for _, l := range s.listeners {
		l(ctx, ev)
	}
}
