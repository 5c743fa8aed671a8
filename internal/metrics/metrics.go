// Package metrics exposes Prometheus counters for HTTP traffic, audit
// recording and stage projections.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Projection outcomes
const (
	ProjectionPredicted = "predicted"
	ProjectionNoRule    = "no_rule"
	ProjectionNoHistory = "no_history"
)

// Recorder is the metrics surface used by middleware and services.
type Recorder interface {
	ObserveRequest(route string, status int, duration time.Duration)
	IncAuditRecorded(action string)
	IncAuditSuppressed(action string)
	IncAuditFailed(action string)
	IncProjection(outcome string)
	Handler() http.Handler
}

type promRecorder struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	auditRecorded    *prometheus.CounterVec
	auditSuppressed  *prometheus.CounterVec
	auditFailed      *prometheus.CounterVec
	projectionsTotal *prometheus.CounterVec
}

// New returns a Prometheus-backed Recorder, or a no-op one when disabled.
// Each enabled recorder owns its registry.
func New(enabled bool) Recorder {
	if !enabled {
		return Noop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &promRecorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leadflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		auditRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_audit_records_total",
			Help: "Audit entries written",
		}, []string{"action"}),

		auditSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_audit_suppressed_total",
			Help: "Audit entries skipped because nothing changed",
		}, []string{"action"}),

		auditFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_audit_failures_total",
			Help: "Audit entries that could not be persisted",
		}, []string{"action"}),

		projectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_projections_total",
			Help: "Stage transition projections by outcome",
		}, []string{"outcome"}),
	}
}

func (m *promRecorder) ObserveRequest(route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *promRecorder) IncAuditRecorded(action string) {
	m.auditRecorded.WithLabelValues(action).Inc()
}

func (m *promRecorder) IncAuditSuppressed(action string) {
	m.auditSuppressed.WithLabelValues(action).Inc()
}

func (m *promRecorder) IncAuditFailed(action string) {
	m.auditFailed.WithLabelValues(action).Inc()
}

func (m *promRecorder) IncProjection(outcome string) {
	m.projectionsTotal.WithLabelValues(outcome).Inc()
}

func (m *promRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop returns a Recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) ObserveRequest(_ string, _ int, _ time.Duration) {}
func (noopRecorder) IncAuditRecorded(_ string)                       {}
func (noopRecorder) IncAuditSuppressed(_ string)                     {}
func (noopRecorder) IncAuditFailed(_ string)                         {}
func (noopRecorder) IncProjection(_ string)                          {}
func (noopRecorder) Handler() http.Handler                           { return http.NotFoundHandler() }
