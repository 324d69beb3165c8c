// Package metrics collects rate limiting metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects rate limit check outcomes. All methods are nil-safe.
type Metrics struct {
	checks        *prometheus.CounterVec
	quotaExceeded prometheus.Counter
	lockouts      prometheus.Counter
	degraded      prometheus.Gauge
}

// New registers the rate limit metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cubby_ratelimit_checks_total",
			Help: "Rate limit checks by endpoint class and outcome.",
		}, []string{"class", "outcome"}),
		quotaExceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_ratelimit_child_quota_exceeded_total",
			Help: "Interactions refused by the child daily quota.",
		}),
		lockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_ratelimit_auth_lockouts_total",
			Help: "Login lockouts triggered.",
		}),
		degraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cubby_ratelimit_degraded",
			Help: "1 while rate limit checks are served by the in-memory fallback.",
		}),
	}
}

// Check records one rate limit check outcome ("allowed" or "denied").
func (m *Metrics) Check(class, outcome string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(class, outcome).Inc()
}

// QuotaExceeded records one child quota refusal.
func (m *Metrics) QuotaExceeded() {
	if m == nil {
		return
	}
	m.quotaExceeded.Inc()
}

// Lockout records one triggered login lockout.
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// DegradedState reflects whether checks are running on the fallback store.
func (m *Metrics) DegradedState(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.degraded.Set(1)
		return
	}
	m.degraded.Set(0)
}
