// Package metrics exposes Prometheus instrumentation for compliance
// evaluations. All methods are safe on a nil receiver, which disables
// collection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks compliance evaluation outcomes and latency.
type Metrics struct {
	evaluations *prometheus.CounterVec
	duration    prometheus.Histogram
	previews    prometheus.Counter
}

// New registers compliance metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cubby_compliance_evaluations_total",
			Help: "Compliance evaluations by bracket and outcome (allowed, denied, error).",
		}, []string{"bracket", "outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cubby_compliance_evaluation_seconds",
			Help:    "End-to-end latency of child-bound compliance evaluations.",
			Buckets: prometheus.DefBuckets,
		}),
		previews: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_compliance_previews_total",
			Help: "Ad-hoc policy preview evaluations.",
		}),
	}
}

// Evaluation records one evaluation outcome.
func (m *Metrics) Evaluation(bracket, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(bracket, outcome).Inc()
}

// ObserveDuration records evaluation latency in seconds.
func (m *Metrics) ObserveDuration(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}

// Preview records one preview evaluation.
func (m *Metrics) Preview() {
	if m == nil {
		return
	}
	m.previews.Inc()
}
