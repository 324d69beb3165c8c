package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ops audit publisher behavior. All methods are safe to call
// on a nil receiver, which disables collection.
type Metrics struct {
	tracked             *prometheus.CounterVec
	sampled             *prometheus.CounterVec
	breakerDropped      prometheus.Counter
	persistFailures     prometheus.Counter
	circuitBreakerState prometheus.Gauge
}

// NewMetrics registers ops audit metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		tracked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cubby_audit_ops_tracked_total",
			Help: "Total ops audit events offered to the publisher, by action.",
		}, []string{"action"}),
		sampled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cubby_audit_ops_sampled_total",
			Help: "Ops audit events selected by sampling, by action.",
		}, []string{"action"}),
		breakerDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_audit_ops_breaker_dropped_total",
			Help: "Ops audit events dropped because the circuit breaker was open.",
		}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_audit_ops_persist_failures_total",
			Help: "Failures persisting ops audit events.",
		}),
		circuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cubby_audit_ops_circuit_breaker_open",
			Help: "1 when the ops audit circuit breaker is open, 0 otherwise.",
		}),
	}
}

func (m *Metrics) Tracked(action string) {
	if m == nil {
		return
	}
	m.tracked.WithLabelValues(action).Inc()
}

func (m *Metrics) Sampled(action string) {
	if m == nil {
		return
	}
	m.sampled.WithLabelValues(action).Inc()
}

func (m *Metrics) BreakerDropped() {
	if m == nil {
		return
	}
	m.breakerDropped.Inc()
}

func (m *Metrics) PersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) BreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.circuitBreakerState.Set(1)
	} else {
		m.circuitBreakerState.Set(0)
	}
}
