package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
)

// Metrics holds every Prometheus collector of the service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec

	// Storage metrics
	StorageCleanupFailuresTotal *prometheus.CounterVec

	// LLM metrics
	LLMRequestDuration *prometheus.HistogramVec

	// Event metrics
	EventsPublishedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classroom_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_authz_decisions_total",
				Help: "Authorization decisions by capability, resource kind and outcome",
			},
			[]string{"capability", "resource", "outcome"},
		),
		StorageCleanupFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_storage_cleanup_failures_total",
				Help: "Object deletions that failed while the metadata row was removed anyway",
			},
			[]string{"bucket", "reason"},
		),
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classroom_llm_request_duration_seconds",
				Help:    "Duration of extraction calls to the hosted LLM",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"task", "status"},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_events_published_total",
				Help: "Domain events handed to the publisher",
			},
			[]string{"type", "status"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.StorageCleanupFailuresTotal,
		m.LLMRequestDuration,
		m.EventsPublishedTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// GinMiddleware records request count and latency. The route template is used
// as path label so ids do not explode cardinality.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveDecision implements authz.DecisionObserver
func (m *Metrics) ObserveDecision(capability authz.Capability, kind authz.ResourceKind, decision authz.Decision) {
	outcome := "allowed"
	if !decision.Allowed {
		outcome = string(decision.Reason)
	}
	m.AuthzDecisionsTotal.WithLabelValues(string(capability), string(kind), outcome).Inc()
}

// StorageCleanupFailed counts a best-effort object deletion that did not succeed
func (m *Metrics) StorageCleanupFailed(bucket, reason string) {
	m.StorageCleanupFailuresTotal.WithLabelValues(bucket, reason).Inc()
}

// ObserveLLMCall records the duration of one extraction call
func (m *Metrics) ObserveLLMCall(task string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LLMRequestDuration.WithLabelValues(task, status).Observe(duration.Seconds())
}

// EventPublished counts a publish attempt
func (m *Metrics) EventPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
