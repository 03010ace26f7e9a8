// Package api exposes tasks, rule tree editing and condition checks over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/audit"
	"github.com/TimurManjosov/jobwatch/internal/auth"
	"github.com/TimurManjosov/jobwatch/internal/snapshot"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
	"github.com/TimurManjosov/jobwatch/internal/telemetry"
)

// requestTimeout bounds every route except the SSE stream.
const requestTimeout = 5 * time.Second

// Options wires a Server.
type Options struct {
	Tasks    *tasks.Service
	Store    store.Store
	Snapshot *snapshot.Holder
	Auth     *auth.Authenticator
	Logger   zerolog.Logger
	// RateLimitPerIP is requests per minute per client; 0 disables limiting.
	RateLimitPerIP int
	// Audit serves GET /v1/audit; nil answers with an empty list.
	Audit audit.Reader
}

type Server struct {
	tasks     *tasks.Service
	store     store.Store
	snap      *snapshot.Holder
	auth      *auth.Authenticator
	logger    zerolog.Logger
	rateLimit int
	audit     audit.Reader

	heartbeat time.Duration
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a Server and subscribes it to task events so the
// snapshot follows every change.
func NewServer(opts Options) *Server {
	s := &Server{
		tasks:     opts.Tasks,
		store:     opts.Store,
		snap:      opts.Snapshot,
		auth:      opts.Auth,
		logger:    opts.Logger.With().Str("component", "api").Logger(),
		rateLimit: opts.RateLimitPerIP,
		audit:     opts.Audit,
		heartbeat: 25 * time.Second,
		closing:   make(chan struct{}),
	}
	if s.snap == nil {
		s.snap = snapshot.NewHolder()
	}

	s.tasks.OnEvent(func(ctx context.Context, ev tasks.Event) {
		if err := s.RebuildSnapshot(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("snapshot rebuild failed")
		}
	})
	return s
}

// RebuildSnapshot reloads all tasks and swaps the served snapshot.
func (s *Server) RebuildSnapshot(ctx context.Context) error {
	if err := s.snap.Rebuild(ctx, s.store); err != nil {
		return err
	}
	telemetry.ObserveSnapshot(s.snap.Load())
	return nil
}

// CloseStreams ends all open SSE streams. http.Server.Shutdown does not
// cancel in-flight requests, so call it before shutting down.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogging(s.logger)...)
	r.Use(telemetry.Middleware)
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(s.rateLimit, time.Minute,
			httprate.WithKeyByIP(),
			httprate.WithLimitHandler(RateLimitedError),
		))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public: long-lived, so outside the timeout group
	r.Get("/v1/tasks/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// public: snapshot (ETag), reads and checks
		r.Get("/v1/tasks", s.handleListTasks)
		r.Get("/v1/tasks/{id}", s.handleGetTask)
		r.Post("/v1/tasks/{id}/check", s.handleCheckTask)
		r.Post("/v1/check", s.handleCheck)
		r.Post("/v1/check/batch", s.handleCheckBatch)

		// admin (protected)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin(writeAuthError))

			r.Post("/v1/tasks", s.handleCreateTask)
			r.Put("/v1/tasks/{id}", s.handleUpdateTask)
			r.Delete("/v1/tasks/{id}", s.handleDeleteTask)
			r.Post("/v1/tasks/{id}/duplicate", s.handleDuplicateTask)
			r.Post("/v1/tasks/{id}/start", s.handleStartTask)
			r.Post("/v1/tasks/{id}/stop", s.handleStopTask)
			r.Post("/v1/tasks/{id}/complete", s.handleCompleteTask)

			r.Post("/v1/tasks/{id}/groups", s.handleAddGroup)
			r.Delete("/v1/tasks/{id}/groups/{groupId}", s.handleRemoveGroup)
			r.Post("/v1/tasks/{id}/groups/{groupId}/conditions", s.handleAddSubCondition)
			r.Delete("/v1/tasks/{id}/groups/{groupId}/conditions/{subId}", s.handleRemoveSubCondition)

			r.Get("/v1/audit", s.handleListAudit)
		})
	})

	return r
}
