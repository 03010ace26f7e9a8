// Package testutil holds helpers shared by the HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/api"
	"github.com/TimurManjosov/jobwatch/internal/audit"
	"github.com/TimurManjosov/jobwatch/internal/auth"
	"github.com/TimurManjosov/jobwatch/internal/snapshot"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

// NewTestServer creates an API server over an in-memory store. Task changes
// are recorded synchronously in an in-memory audit trail.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	svc := tasks.NewService(memStore, zerolog.Nop())
	trail := audit.NewMemorySink(100)
	svc.OnEvent(func(ctx context.Context, ev tasks.Event) {
		_ = trail.Write(ctx, audit.FromTaskEvent(ctx, ev))
	})
	server := api.NewServer(api.Options{
		Tasks:    svc,
		Store:    memStore,
		Snapshot: snapshot.NewHolder(),
		Auth:     auth.NewAuthenticator(adminKey, ""),
		Logger:   zerolog.Nop(),
		Audit:    trail,
	})
	if err := server.RebuildSnapshot(context.Background()); err != nil {
		t.Fatalf("RebuildSnapshot: %v", err)
	}
	return server, memStore
}

// NewHTTPServer starts a real HTTP listener in front of NewTestServer.
// It is closed when the test ends.
func NewHTTPServer(t *testing.T, adminKey string) (*httptest.Server, *api.Server) {
	t.Helper()
	server, _ := NewTestServer(t, adminKey)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, server
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedTasks stores tasks directly, bypassing validation.
func SeedTasks(ctx context.Context, st store.Store, tasks []store.Task) error {
	for _, task := range tasks {
		if err := st.UpsertTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}
