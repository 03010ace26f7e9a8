package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimurManjosov/jobwatch/internal/evaluation"
	"github.com/TimurManjosov/jobwatch/internal/snapshot"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/webhook"
)

// Registry holds every jobwatch metric. It is separate from the default
// registry so tests can construct servers repeatedly.
var Registry = prometheus.NewRegistry()

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ruleEvals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Job postings evaluated against a condition tree, by result",
		},
		[]string{"result"},
	)
	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook deliveries by result",
		},
		[]string{"result"},
	)

	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Number of currently connected SSE clients",
	})
	Tasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tasks_total",
		Help: "Number of tasks in the current snapshot, by status",
	}, []string{"status"})
)

var initOnce sync.Once

// Init registers all metrics. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(
			httpReqs, httpDur, ruleEvals, webhookDeliveries, SSEClients, Tasks,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveEvaluation counts one evaluated posting.
func ObserveEvaluation(satisfied bool) {
	result := "rejected"
	if satisfied {
		result = "accepted"
	}
	ruleEvals.WithLabelValues(result).Inc()
}

// ObserveBatch counts every posting of a batch evaluation.
func ObserveBatch(results []evaluation.PostingResult) {
	for _, r := range results {
		ObserveEvaluation(r.Result.Satisfied)
	}
}

// ObserveDelivery counts a finished webhook delivery; it fits
// webhook.Options.OnDelivery.
func ObserveDelivery(d webhook.Delivery) {
	result := "failure"
	if d.Success {
		result = "success"
	}
	webhookDeliveries.WithLabelValues(result).Inc()
}

// ObserveSnapshot sets the task gauges from a snapshot.
func ObserveSnapshot(s *snapshot.Snapshot) {
	counts := map[store.Status]int{
		store.StatusReady:      0,
		store.StatusProcessing: 0,
		store.StatusDone:       0,
		store.StatusStopped:    0,
	}
	for _, t := range s.Tasks {
		counts[t.Status]++
	}
	for status, n := range counts {
		Tasks.WithLabelValues(string(status)).Set(float64(n))
	}
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// route pattern is only complete after routing
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
