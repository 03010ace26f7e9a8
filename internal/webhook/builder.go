package webhook

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

// EventBuilder provides a fluent API for constructing webhook events.
//
// Usage:
//
//	event := webhook.NewEventBuilder(ctx).
//		ForTask(id).
//		WithStates(before, after).
//		Build()
type EventBuilder struct {
	event Event
}

// NewEventBuilder creates a new builder. The request id is taken from ctx
// when the event originates from an HTTP request.
func NewEventBuilder(ctx context.Context) *EventBuilder {
	return &EventBuilder{
		event: Event{
			Timestamp: time.Now().UTC(),
			Metadata:  Metadata{RequestID: middleware.GetReqID(ctx)},
		},
	}
}

// ForTask sets the resource to the task with the given id.
func (b *EventBuilder) ForTask(id string) *EventBuilder {
	b.event.Resource = Resource{Type: "task", ID: id}
	return b
}

// WithStates sets the before and after states for the event.
// The event type (created/updated/deleted) is derived from which side is nil;
// status changes are set explicitly with WithType.
func (b *EventBuilder) WithStates(before, after *store.Task) *EventBuilder {
	b.event.Data.Before = before
	b.event.Data.After = after

	switch {
	case before == nil && after != nil:
		b.event.Type = EventTaskCreated
	case before != nil && after == nil:
		b.event.Type = EventTaskDeleted
	case before != nil && after != nil:
		b.event.Type = EventTaskUpdated
		b.event.Data.Changes = diffTasks(before, after)
	}
	return b
}

// WithType overrides the derived event type.
func (b *EventBuilder) WithType(eventType string) *EventBuilder {
	b.event.Type = eventType
	return b
}

// WithTimestamp overrides the event time.
func (b *EventBuilder) WithTimestamp(ts time.Time) *EventBuilder {
	if !ts.IsZero() {
		b.event.Timestamp = ts
	}
	return b
}

// Build returns the constructed Event.
func (b *EventBuilder) Build() Event {
	return b.event
}

// FromTaskEvent converts a task service event into a webhook event.
func FromTaskEvent(ctx context.Context, ev tasks.Event) Event {
	b := NewEventBuilder(ctx).ForTask(ev.Task.ID).WithTimestamp(ev.Timestamp)

	after := ev.Task
	switch ev.Type {
	case tasks.EventCreated:
		b.WithStates(nil, &after)
	case tasks.EventDeleted:
		b.WithStates(&after, nil)
	case tasks.EventStatusChanged:
		b.WithStates(ev.Before, &after).WithType(EventTaskStatusChanged)
	default:
		b.WithStates(ev.Before, &after)
	}
	return b.Build()
}

// diffTasks lists the top-level fields that differ, as {"old", "new"} pairs.
func diffTasks(before, after *store.Task) map[string]any {
	changes := make(map[string]any)
	pair := func(field string, from, to any) {
		changes[field] = map[string]any{"old": from, "new": to}
	}

	if before.TaskName != after.TaskName {
		pair("taskName", before.TaskName, after.TaskName)
	}
	if before.Delay != after.Delay {
		pair("delay", before.Delay, after.Delay)
	}
	if before.Status != after.Status {
		pair("status", before.Status, after.Status)
	}
	if !sameTree(before, after) {
		changes["jobConditions"] = map[string]any{
			"groups":        len(after.JobConditions.Groups),
			"subConditions": after.JobConditions.SubConditionCount(),
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}

func sameTree(before, after *store.Task) bool {
	a, b := before.JobConditions.Groups, after.JobConditions.Groups
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || len(a[i].SubConditions) != len(b[i].SubConditions) {
			return false
		}
		for j := range a[i].SubConditions {
			if a[i].SubConditions[j] != b[i].SubConditions[j] {
				return false
			}
		}
	}
	return true
}
