// Package metrics exposes Prometheus instrumentation for the scheduler,
// envelope ingestor, and HTTP control surface.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "djcomponent",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "djcomponent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "djcomponent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "djcomponent",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Current number of activations waiting in the queue.",
		},
	)

	activationsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "djcomponent",
			Subsystem: "scheduler",
			Name:      "activations_total",
			Help:      "Total number of activations that left the Executing state.",
		},
		[]string{"class_id", "outcome"},
	)

	activationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "djcomponent",
			Subsystem: "scheduler",
			Name:      "activation_duration_seconds",
			Help:      "Duration of one activation's callback chain.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"class_id"},
	)

	stallEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "djcomponent",
			Subsystem: "scheduler",
			Name:      "stall_events_total",
			Help:      "Total number of stall diagnostics emitted by the reporter.",
		},
		[]string{"class_id"},
	)

	assetWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "djcomponent",
			Subsystem: "assets",
			Name:      "wait_duration_seconds",
			Help:      "Time a waitFor caller spent until the awaited asset loaded.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"kind"},
	)

	envelopesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "djcomponent",
			Subsystem: "ingestor",
			Name:      "envelopes_total",
			Help:      "Total number of activation envelopes ingested.",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		queueDepth,
		activationsExecuted,
		activationDuration,
		stallEvents,
		assetWaitDuration,
		envelopesIngested,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// SetQueueDepth publishes the current number of queued activations.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordActivation records the outcome and duration of one executed activation.
func RecordActivation(classID, outcome string, duration time.Duration) {
	if classID == "" {
		classID = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	activationsExecuted.WithLabelValues(classID, outcome).Inc()
	activationDuration.WithLabelValues(classID).Observe(duration.Seconds())
}

// RecordStall records a stall diagnostic for the oldest blocked activation's class.
func RecordStall(classID string) {
	if classID == "" {
		classID = "unknown"
	}
	stallEvents.WithLabelValues(classID).Inc()
}

// RecordAssetWait records how long a waitFor caller waited for a kind of asset.
func RecordAssetWait(kind string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	assetWaitDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordEnvelopeIngested records one ingested envelope by discovery source
// ("scan" for the startup sweep, "mutation" for the live watcher).
func RecordEnvelopeIngested(source string) {
	if source == "" {
		source = "unknown"
	}
	envelopesIngested.WithLabelValues(source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	return "/" + parts[0]
}
