package retention

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects retention sweeper metrics. All methods are nil-safe so
// the sweeper can run without metrics in tests.
type Metrics struct {
	sweeps        prometheus.Counter
	purged        prometheus.Counter
	sweepFailures prometheus.Counter
	sweepSeconds  prometheus.Histogram
}

// NewMetrics registers the sweeper metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_retention_sweeps_total",
			Help: "Completed retention sweep passes.",
		}),
		purged: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_retention_purged_total",
			Help: "Expired conversations purged by the sweeper.",
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cubby_retention_sweep_failures_total",
			Help: "Sweep passes that ended in an error.",
		}),
		sweepSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cubby_retention_sweep_seconds",
			Help:    "Duration of retention sweep passes.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Sweep() {
	if m == nil {
		return
	}
	m.sweeps.Inc()
}

func (m *Metrics) Purged(n int) {
	if m == nil {
		return
	}
	m.purged.Add(float64(n))
}

func (m *Metrics) SweepFailure() {
	if m == nil {
		return
	}
	m.sweepFailures.Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.sweepSeconds.Observe(seconds)
}
