package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP traffic and the
// publishing pipeline.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runsTotal       *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	apiCallsTotal   *prometheus.CounterVec
	quotaRejections *prometheus.CounterVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "autopress",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopress",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopress",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Publishing runs started, by trigger mode.",
	}, []string{"mode"})

	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopress",
		Subsystem: "pipeline",
		Name:      "jobs_total",
		Help:      "Publish jobs finished, by terminal state.",
	}, []string{"state"})

	apiCallsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopress",
		Subsystem: "pipeline",
		Name:      "api_calls_total",
		Help:      "External API calls issued, by kind.",
	}, []string{"kind"})

	quotaRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopress",
		Subsystem: "pipeline",
		Name:      "quota_rejections_total",
		Help:      "Operations refused because the per-run quota would be exceeded.",
	}, []string{"kind"})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, runsTotal, jobsTotal, apiCallsTotal, quotaRejections,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runsTotal:       runsTotal,
		jobsTotal:       jobsTotal,
		apiCallsTotal:   apiCallsTotal,
		quotaRejections: quotaRejections,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RunStarted increments the run counter for the given trigger mode.
func (c *Collector) RunStarted(mode string) {
	c.runsTotal.WithLabelValues(mode).Inc()
}

// JobFinished increments the job counter for a terminal state.
func (c *Collector) JobFinished(state string) {
	c.jobsTotal.WithLabelValues(state).Inc()
}

// APICall counts one external API call of the given kind.
func (c *Collector) APICall(kind string) {
	c.apiCallsTotal.WithLabelValues(kind).Inc()
}

// QuotaRejected counts one quota refusal of the given kind.
func (c *Collector) QuotaRejected(kind string) {
	c.quotaRejections.WithLabelValues(kind).Inc()
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
