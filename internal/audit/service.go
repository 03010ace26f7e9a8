// Package audit records who changed which task and how.
//
// Events come from the task service's change notifications. They are queued
// and written by a background worker, so a slow sink never delays a request;
// when the queue is full, events are dropped and counted.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

// Action constants for audit logging
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionStatusChanged = "status_changed"
)

// ActorKind constants for audit logging
const (
	ActorKindAdmin  = "admin"
	ActorKindSystem = "system"
)

const writeTimeout = 5 * time.Second

// Actor represents who performed the action
type Actor struct {
	Kind    string `json:"kind"`
	Display string `json:"display"`
}

// Event is one recorded task change.
type Event struct {
	OccurredAt  time.Time      `json:"occurredAt"`
	RequestID   string         `json:"requestId,omitempty"`
	Actor       Actor          `json:"actor"`
	Action      string         `json:"action"`
	TaskID      string         `json:"taskId"`
	TaskName    string         `json:"taskName"`
	BeforeState map[string]any `json:"beforeState,omitempty"`
	AfterState  map[string]any `json:"afterState,omitempty"`
	Changes     map[string]any `json:"changes,omitempty"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Service queues events and hands them to a Sink.
type Service struct {
	sink    Sink
	logger  zerolog.Logger
	queue   chan Event
	done    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewService starts a service with a background worker.
func NewService(sink Sink, logger zerolog.Logger, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 1
	}
	s := &Service{
		sink:    sink,
		logger:  logger.With().Str("component", "audit").Logger(),
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.worker()
	return s
}

// Listener adapts the service to task change notifications.
func (s *Service) Listener() tasks.Listener {
	return func(ctx context.Context, ev tasks.Event) {
		s.Log(FromTaskEvent(ctx, ev))
	}
}

// Log queues an event. It never blocks; a full queue drops the event.
func (s *Service) Log(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	select {
	case <-s.done:
		s.dropped.Add(1)
		return
	default:
	}

	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
		s.logger.Warn().Str("task_id", event.TaskID).Str("action", event.Action).Msg("audit queue full, dropping event")
	}
}

// Dropped returns how many events were discarded.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events, writes what is queued and waits for the
// worker to exit. Safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
	return nil
}

func (s *Service) worker() {
	defer close(s.stopped)
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.done:
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.sink.Write(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("task_id", event.TaskID).Msg("failed to write audit event")
	}
}
