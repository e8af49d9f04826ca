package briefing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for the briefing export.
type Metrics struct {
	BriefingsBuiltTotal prometheus.Counter
	ItemsIncluded       prometheus.Histogram
}

// NewMetrics builds and registers the briefing export's metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		BriefingsBuiltTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "briefing_builds_total",
			Help: "Total number of briefing exports built",
		}),
		ItemsIncluded: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "briefing_items_included",
			Help:    "Number of items included per briefing export",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// RecordBuilt records one built briefing with n included items.
func (m *Metrics) RecordBuilt(n int) {
	m.BriefingsBuiltTotal.Inc()
	m.ItemsIncluded.Observe(float64(n))
}
