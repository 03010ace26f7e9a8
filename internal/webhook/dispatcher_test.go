package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/store"
)

func newTestDispatcher(urls []string, maxRetries int, onDelivery func(Delivery)) *Dispatcher {
	return NewDispatcher(Options{
		URLs:            urls,
		Secret:          "test-secret-123",
		MaxRetries:      maxRetries,
		Timeout:         2 * time.Second,
		InitialInterval: time.Millisecond,
		Logger:          zerolog.Nop(),
		OnDelivery:      onDelivery,
	})
}

func testEvent() Event {
	after := &store.Task{ID: "t1", TaskName: "Go jobs", Delay: 2000, Status: store.StatusReady}
	return Event{
		Type:      EventTaskCreated,
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Resource:  Resource{Type: "task", ID: "t1"},
		Data:      EventData{After: after},
		Metadata:  Metadata{RequestID: "req-456"},
	}
}

func TestDispatcher_DeliversSignedEvent(t *testing.T) {
	received := make(chan Event, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type: application/json, got %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Jobwatch-Event") != EventTaskCreated {
			t.Errorf("X-Jobwatch-Event = %q", r.Header.Get("X-Jobwatch-Event"))
		}
		if r.Header.Get("X-Jobwatch-Delivery") == "" {
			t.Error("Missing X-Jobwatch-Delivery header")
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !VerifyRequest(r, body, "test-secret-123") {
			t.Error("Signature verification failed")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var event Event
		if err := json.Unmarshal(body, &event); err != nil {
			t.Errorf("Failed to unmarshal event: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := newTestDispatcher([]string{server.URL}, 0, nil)
	d.Start()
	d.Dispatch(testEvent())

	select {
	case event := <-received:
		if event.Type != EventTaskCreated || event.Resource.ID != "t1" {
			t.Errorf("unexpected event: %+v", event)
		}
		if event.Data.After == nil || event.Data.After.TaskName != "Go jobs" {
			t.Errorf("unexpected payload data: %+v", event.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for webhook delivery")
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDispatcher_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var (
		mu         sync.Mutex
		deliveries []Delivery
	)
	d := newTestDispatcher([]string{server.URL}, 3, func(del Delivery) {
		mu.Lock()
		deliveries = append(deliveries, del)
		mu.Unlock()
	})
	d.Start()
	d.Dispatch(testEvent())
	_ = d.Close()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery report, got %d", len(deliveries))
	}
	del := deliveries[0]
	if !del.Success || del.Attempts != 3 || del.StatusCode != http.StatusNoContent {
		t.Errorf("unexpected delivery: %+v", del)
	}
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var last Delivery
	d := newTestDispatcher([]string{server.URL}, 2, func(del Delivery) { last = del })
	d.Start()
	d.Dispatch(testEvent())
	_ = d.Close()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3 (1 + 2 retries)", got)
	}
	if last.Success || last.Err == nil {
		t.Errorf("expected failed delivery, got %+v", last)
	}
}

func TestDispatcher_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	var last Delivery
	d := newTestDispatcher([]string{server.URL}, 5, func(del Delivery) { last = del })
	d.Start()
	d.Dispatch(testEvent())
	_ = d.Close()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
	if last.Success || last.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected delivery: %+v", last)
	}
}

func TestDispatcher_FansOutToAllURLs(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	})
	a := httptest.NewServer(handler)
	defer a.Close()
	b := httptest.NewServer(handler)
	defer b.Close()

	d := newTestDispatcher([]string{a.URL, b.URL}, 0, nil)
	d.Start()
	d.Dispatch(testEvent())
	d.Dispatch(testEvent())
	_ = d.Close()

	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("expected 4 deliveries, got %d", got)
	}
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := newTestDispatcher(nil, 0, nil)
	d.Start()

	if err := d.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Dispatch after Close is dropped rather than panicking
	d.Dispatch(testEvent())
}

func TestDispatcher_DispatchRacingClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := newTestDispatcher(nil, 0, nil)
		d.Start()

		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 20; k++ {
					d.Dispatch(testEvent())
				}
			}()
		}
		_ = d.Close()
		wg.Wait()
	}
}

func TestEvent_JSONShape(t *testing.T) {
	data, err := json.Marshal(testEvent())
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	for _, key := range []string{"event", "timestamp", "resource", "data", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if raw["event"] != EventTaskCreated {
		t.Errorf("event = %v", raw["event"])
	}
}
