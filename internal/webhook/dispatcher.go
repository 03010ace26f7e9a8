package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 1000

	// maxResponseBodySize limits how much of the response body we read (1KB)
	maxResponseBodySize = 1024

	defaultTimeout = 10 * time.Second
)

// Options configures a Dispatcher.
type Options struct {
	URLs       []string
	Secret     string
	MaxRetries int
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration
	Logger          zerolog.Logger
	// OnDelivery, if set, is called after every endpoint delivery finishes.
	OnDelivery func(Delivery)
}

// Dispatcher manages webhook event dispatching and delivery
type Dispatcher struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
	queue  chan Event
	done   chan struct{}

	// mu guards closed and the queue close; Dispatch holds it shared.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = backoff.DefaultInitialInterval
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Dispatcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: opts.Logger.With().Str("component", "webhook").Logger(),
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close gracefully shuts down the webhook dispatcher.
// It closes the event queue and waits for all pending deliveries to complete.
// Close is safe to call multiple times.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return nil
}

// Dispatch queues an event for webhook delivery.
// This is non-blocking; events are dropped when the queue is full or the
// dispatcher is closed.
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- event:
		d.logger.Debug().
			Str("event", event.Type).
			Str("task_id", event.Resource.ID).
			Int("queue_size", len(d.queue)).
			Msg("event queued")
	default:
		d.logger.Error().
			Str("event", event.Type).
			Str("task_id", event.Resource.ID).
			Int("queue_capacity", queueSize).
			Msg("queue full, dropping event")
	}
}

// Listener adapts the dispatcher to task service events.
func (d *Dispatcher) Listener() tasks.Listener {
	return func(ctx context.Context, ev tasks.Event) {
		d.Dispatch(FromTaskEvent(ctx, ev))
	}
}

// worker processes events from the queue
func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			d.logger.Error().Err(err).Str("event", event.Type).Msg("failed to marshal event payload")
			continue
		}
		for _, url := range d.opts.URLs {
			d.report(d.deliverWithRetry(context.Background(), url, event.Type, payload))
		}
	}
}

// deliverWithRetry posts payload to url, retrying transport errors, 429 and
// 5xx responses with exponential backoff.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, url, eventType string, payload []byte) Delivery {
	delivery := Delivery{ID: uuid.NewString(), URL: url, EventType: eventType}
	signature := ComputeHMAC(payload, d.opts.Secret)
	start := time.Now()

	op := func() (int, error) {
		delivery.Attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Jobwatch-Signature", signature)
		req.Header.Set("X-Jobwatch-Event", eventType)
		req.Header.Set("X-Jobwatch-Delivery", delivery.ID)

		resp, err := d.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp.StatusCode, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return resp.StatusCode, fmt.Errorf("endpoint responded with status %d", resp.StatusCode)
		default:
			return resp.StatusCode, backoff.Permanent(fmt.Errorf("endpoint responded with status %d", resp.StatusCode))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialInterval

	status, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Warn().
				Err(err).
				Str("url", url).
				Str("delivery_id", delivery.ID).
				Int("attempt", delivery.Attempts).
				Dur("retry_in", next).
				Msg("delivery failed, retrying")
		}),
	)

	delivery.StatusCode = status
	delivery.Duration = time.Since(start)
	delivery.Success = err == nil
	delivery.Err = err
	return delivery
}

func (d *Dispatcher) report(delivery Delivery) {
	if delivery.Success {
		d.logger.Info().
			Str("url", delivery.URL).
			Str("event", delivery.EventType).
			Int("status", delivery.StatusCode).
			Int("attempts", delivery.Attempts).
			Dur("duration", delivery.Duration).
			Msg("delivery succeeded")
	} else {
		d.logger.Error().
			Err(delivery.Err).
			Str("url", delivery.URL).
			Str("event", delivery.EventType).
			Int("status", delivery.StatusCode).
			Int("attempts", delivery.Attempts).
			Msg("delivery failed permanently")
	}
	if d.opts.OnDelivery != nil {
		d.opts.OnDelivery(delivery)
	}
}
