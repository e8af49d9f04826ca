package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters/histograms for the scheduler,
// adapted from the teacher's infra/worker.WorkerMetrics cron-job metric
// shape (runs-total by status, duration histogram, items-processed
// counter) generalized from "feeds processed" to "items yielded" and
// broken out per connector kind.
type Metrics struct {
	TickRunsTotal    *prometheus.CounterVec
	TickDuration     prometheus.Histogram
	ChannelsFetched  *prometheus.CounterVec
	ItemsYieldedTotal prometheus.Counter
}

// NewMetrics builds and registers the scheduler's metrics via promauto,
// matching the teacher's registration style (no manual MustRegister call
// needed; promauto registers at construction).
func NewMetrics() *Metrics {
	return &Metrics{
		TickRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_tick_runs_total",
			Help: "Total number of scheduler ticks by status (success/failure)",
		}, []string{"status"}),

		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of a scheduler tick in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),

		ChannelsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_channels_fetched_total",
			Help: "Total number of channel fetches by outcome (success/failure) and connector kind",
		}, []string{"kind", "outcome"}),

		ItemsYieldedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_items_yielded_total",
			Help: "Total number of items yielded by connector drivers across all fetches",
		}),
	}
}

// RecordTick records one tick's outcome and duration.
func (m *Metrics) RecordTick(status string, seconds float64) {
	m.TickRunsTotal.WithLabelValues(status).Inc()
	m.TickDuration.Observe(seconds)
}

// RecordChannelFetch records one channel fetch's outcome.
func (m *Metrics) RecordChannelFetch(kind, outcome string) {
	m.ChannelsFetched.WithLabelValues(kind, outcome).Inc()
}

// RecordItemsYielded adds n to the running total of yielded items.
func (m *Metrics) RecordItemsYielded(n int64) {
	if n > 0 {
		m.ItemsYieldedTotal.Add(float64(n))
	}
}
