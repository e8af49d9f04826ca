package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for the ingestion pipeline, following
// the same promauto-at-construction style as scheduler.Metrics.
type Metrics struct {
	ItemsIngestedTotal  prometheus.Counter
	ItemsDuplicateTotal *prometheus.CounterVec
}

// NewMetrics builds and registers the ingestion pipeline's metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ItemsIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingest_items_ingested_total",
			Help: "Total canonical items inserted by the ingestion pipeline",
		}),

		ItemsDuplicateTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_items_duplicate_total",
			Help: "Total items identified as duplicates, broken out by the stage that caught them",
		}, []string{"reason"}),
	}
}

// RecordIngested records one canonical item insertion.
func (m *Metrics) RecordIngested() {
	m.ItemsIngestedTotal.Inc()
}

// RecordDuplicate records one duplicate caught by the named stage
// ("identity", "content-hash", "title-similarity", "paraphrase", or
// "identity-race" for a store-level conflict caught at insert time).
func (m *Metrics) RecordDuplicate(reason string) {
	m.ItemsDuplicateTotal.WithLabelValues(reason).Inc()
}
