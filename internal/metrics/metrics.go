// Package metrics provides Prometheus observability for the workflow core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/septentria/land-office/internal/domain/workflow"
)

// Metrics collects workflow and HTTP counters for the office
type Metrics struct {
	// Completed workflow transitions by operation and resulting status
	Transitions *prometheus.CounterVec

	// Rejected workflow operations by operation name
	Rejections *prometheus.CounterVec

	// HTTP request latency by route and status code
	RequestLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered on the
// default registry
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landoffice_workflow_transitions_total",
			Help: "Total completed workflow transitions by operation and resulting status",
		}, []string{"operation", "status"}),

		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landoffice_workflow_rejections_total",
			Help: "Total rejected workflow operations by operation",
		}, []string{"operation"}),

		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landoffice_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status code",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "code"}),
	}
}

// RecordTransition records a completed workflow transition
func (m *Metrics) RecordTransition(operation string, to workflow.Status) {
	if m != nil {
		m.Transitions.WithLabelValues(operation, to.String()).Inc()
	}
}

// RecordRejection records a workflow operation refused by a guard
func (m *Metrics) RecordRejection(operation string) {
	if m != nil {
		m.Rejections.WithLabelValues(operation).Inc()
	}
}

// ObserveRequest records one HTTP request's duration
func (m *Metrics) ObserveRequest(route, code string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, code).Observe(d.Seconds())
	}
}
