package housekeeping

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for the housekeeping sweep.
type Metrics struct {
	SweepRunsTotal  *prometheus.CounterVec
	ItemsPurgedTotal *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
}

// NewMetrics builds and registers the housekeeping sweep's metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "housekeeping_sweep_runs_total",
			Help: "Total housekeeping sweep runs by outcome (success/failure)",
		}, []string{"status"}),

		ItemsPurgedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "housekeeping_items_purged_total",
			Help: "Total items purged by the housekeeping sweep, broken out by priority bucket",
		}, []string{"priority"}),

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "housekeeping_sweep_duration_seconds",
			Help:    "Duration of a housekeeping sweep in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900},
		}),
	}
}

// RecordSweep records one sweep's outcome and duration.
func (m *Metrics) RecordSweep(status string, seconds float64) {
	m.SweepRunsTotal.WithLabelValues(status).Inc()
	m.SweepDuration.Observe(seconds)
}

// RecordPurged records n items purged from the given priority bucket.
func (m *Metrics) RecordPurged(priority string, n int) {
	if n > 0 {
		m.ItemsPurgedTotal.WithLabelValues(priority).Add(float64(n))
	}
}
