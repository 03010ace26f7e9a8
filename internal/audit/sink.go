package audit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Reader lists recorded events.
type Reader interface {
	// List returns up to limit events, newest first. An empty taskID
	// matches every task; limit <= 0 means no limit.
	List(taskID string, limit int) []Event
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, event Event) error {
	changed := make([]string, 0, len(event.Changes))
	for k := range event.Changes {
		changed = append(changed, k)
	}
	sort.Strings(changed)

	s.logger.Info().
		Str("action", event.Action).
		Str("task_id", event.TaskID).
		Str("task_name", event.TaskName).
		Str("actor", event.Actor.Display).
		Str("request_id", event.RequestID).
		Str("changed", strings.Join(changed, ",")).
		Time("occurred_at", event.OccurredAt).
		Msg("task audit")
	return nil
}

// MemorySink keeps the most recent events in memory.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
	size   int
}

// NewMemorySink keeps at most size events.
func NewMemorySink(size int) *MemorySink {
	if size <= 0 {
		size = 1
	}
	return &MemorySink{events: make([]Event, 0, size), size: size}
}

func (m *MemorySink) Write(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) == m.size {
		copy(m.events, m.events[1:])
		m.events = m.events[:m.size-1]
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MemorySink) List(taskID string, limit int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, 0)
	for i := len(m.events) - 1; i >= 0; i-- {
		if taskID != "" && m.events[i].TaskID != taskID {
			continue
		}
		out = append(out, m.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// MultiSink writes every event to all sinks and joins their errors.
type MultiSink []Sink

func (ms MultiSink) Write(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range ms {
		if err := s.Write(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
