package classify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for the classifier worker, following
// the same promauto-at-construction style as scheduler.Metrics and
// ingest.Metrics.
type Metrics struct {
	ItemsClassifiedTotal *prometheus.CounterVec
	QueueDepth           prometheus.Gauge
	ConsecutiveFailures  prometheus.Gauge
}

// NewMetrics builds and registers the classifier worker's metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ItemsClassifiedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "classify_items_classified_total",
			Help: "Total items classified, broken out by the resulting retry-priority bucket",
		}, []string{"retry_priority"}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "classify_fresh_queue_depth",
			Help: "Current depth of the in-memory fresh classifier queue",
		}),

		ConsecutiveFailures: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "classify_consecutive_failures",
			Help: "Current count of consecutive classifier failures since the last success",
		}),
	}
}

// RecordClassified records one item landing in the given retry-priority
// bucket.
func (m *Metrics) RecordClassified(retryPriority string) {
	m.ItemsClassifiedTotal.WithLabelValues(retryPriority).Inc()
}

// RecordQueueDepth sets the current fresh-queue depth gauge.
func (m *Metrics) RecordQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

// RecordConsecutiveFailures sets the current consecutive-failure gauge.
func (m *Metrics) RecordConsecutiveFailures(n int) {
	m.ConsecutiveFailures.Set(float64(n))
}
