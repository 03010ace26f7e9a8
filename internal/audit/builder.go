package audit

import (
	"context"
	"encoding/json"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimurManjosov/jobwatch/internal/auth"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

var actions = map[tasks.EventType]string{
	tasks.EventCreated:       ActionCreated,
	tasks.EventUpdated:       ActionUpdated,
	tasks.EventDeleted:       ActionDeleted,
	tasks.EventStatusChanged: ActionStatusChanged,
}

// FromTaskEvent builds an audit event from a task change. The request id
// and actor are taken from ctx when it belongs to an API request.
func FromTaskEvent(ctx context.Context, ev tasks.Event) Event {
	actor := Actor{Kind: ActorKindSystem, Display: "system"}
	if auth.IsAdmin(ctx) {
		actor = Actor{Kind: ActorKindAdmin, Display: "admin"}
	}

	action, ok := actions[ev.Type]
	if !ok {
		action = string(ev.Type)
	}

	event := Event{
		OccurredAt: ev.Timestamp,
		RequestID:  middleware.GetReqID(ctx),
		Actor:      actor,
		Action:     action,
		TaskID:     ev.Task.ID,
		TaskName:   ev.Task.TaskName,
	}

	switch ev.Type {
	case tasks.EventDeleted:
		event.BeforeState = taskState(&ev.Task)
	default:
		event.AfterState = taskState(&ev.Task)
		if ev.Before != nil {
			event.BeforeState = taskState(ev.Before)
		}
	}
	event.Changes = ComputeChanges(event.BeforeState, event.AfterState)
	return event
}

// taskState is the audited view of a task; timestamps are left out so they
// never show up as changes.
func taskState(t *store.Task) map[string]any {
	return map[string]any{
		"taskName":      t.TaskName,
		"delay":         t.Delay,
		"status":        string(t.Status),
		"jobConditions": t.JobConditions,
	}
}

// ComputeChanges returns {"key": {"before": x, "after": y}} for every key
// whose JSON encoding differs between the two states, or nil when nothing
// changed.
func ComputeChanges(before, after map[string]any) map[string]any {
	if before == nil && after == nil {
		return nil
	}

	changes := make(map[string]any)
	for key, afterVal := range after {
		beforeVal, existed := before[key]
		if !existed || !sameJSON(beforeVal, afterVal) {
			changes[key] = map[string]any{"before": beforeVal, "after": afterVal}
		}
	}
	for key, beforeVal := range before {
		if _, exists := after[key]; !exists {
			changes[key] = map[string]any{"before": beforeVal, "after": nil}
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}

func sameJSON(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(aj) == string(bj)
}
