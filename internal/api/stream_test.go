package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// SSEEvent represents a parsed Server-Sent Event
type SSEEvent struct {
	Event string
	Data  map[string]string
}

// parseSSE reads all events from a finished SSE body.
func parseSSE(t *testing.T, body string) []SSEEvent {
	t.Helper()
	var events []SSEEvent
	var current SSEEvent

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			current.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if err := json.Unmarshal([]byte(data), &current.Data); err != nil {
				t.Logf("Warning: failed to parse SSE data as JSON: %v", err)
			}
		case line == "" && current.Event != "":
			events = append(events, current)
			current = SSEEvent{}
		}
	}
	return events
}

// serveStream runs the stream handler until stop is called and returns the
// recorded response.
func serveStream(t *testing.T, h http.Handler) (rr *httptest.ResponseRecorder, stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/stream", nil).WithContext(ctx)
	rr = httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(rr, req)
	}()

	return rr, func() {
		cancel()
		wg.Wait()
	}
}

func waitForSubscribers(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.snap.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d subscribers, have %d", n, srv.snap.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStream_HeadersAndInit(t *testing.T) {
	srv, h := newTestServer(t)

	rr, stop := serveStream(t, h)
	waitForSubscribers(t, srv, 1)
	stop()

	result := rr.Result()
	defer result.Body.Close()

	if ct := result.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type 'text/event-stream', got %s", ct)
	}
	if cc := result.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Expected Cache-Control 'no-cache', got %s", cc)
	}

	events := parseSSE(t, rr.Body.String())
	if len(events) == 0 || events[0].Event != "init" {
		t.Fatalf("Expected first event to be 'init', got %+v", events)
	}
	if events[0].Data["etag"] != srv.snap.Load().ETag {
		t.Errorf("init etag %q does not match snapshot %q", events[0].Data["etag"], srv.snap.Load().ETag)
	}
}

func TestStream_UpdateEvent(t *testing.T) {
	srv, h := newTestServer(t)

	rr, stop := serveStream(t, h)
	waitForSubscribers(t, srv, 1)

	createTask(t, h, "Go")
	want := srv.snap.Load().ETag

	// give the stream a moment to write the update
	time.Sleep(50 * time.Millisecond)
	stop()

	events := parseSSE(t, rr.Body.String())
	var update *SSEEvent
	for i := range events {
		if events[i].Event == "update" {
			update = &events[i]
		}
	}
	if update == nil {
		t.Fatalf("Expected an update event, got %+v", events)
	}
	if update.Data["etag"] != want {
		t.Errorf("update etag %q, want %q", update.Data["etag"], want)
	}
}

func TestStream_Heartbeat(t *testing.T) {
	srv, h := newTestServer(t)
	srv.heartbeat = 20 * time.Millisecond

	rr, stop := serveStream(t, h)
	waitForSubscribers(t, srv, 1)
	time.Sleep(70 * time.Millisecond)
	stop()

	if !strings.Contains(rr.Body.String(), ": ping") {
		t.Error("Expected to find heartbeat ping in SSE stream")
	}
}

func TestStream_UnsubscribesOnDisconnect(t *testing.T) {
	srv, h := newTestServer(t)

	_, stop := serveStream(t, h)
	waitForSubscribers(t, srv, 1)
	stop()

	if n := srv.snap.Subscribers(); n != 0 {
		t.Errorf("Expected 0 subscribers after disconnect, got %d", n)
	}
}

func TestStream_CloseStreams(t *testing.T) {
	srv, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/stream", nil)
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rr, req)
		close(done)
	}()

	waitForSubscribers(t, srv, 1)
	srv.CloseStreams()
	srv.CloseStreams()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after CloseStreams")
	}
}
