package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters/gauges for the LLM worker.
type Metrics struct {
	AnalysesTotal       *prometheus.CounterVec
	FreshQueueDepth     prometheus.Gauge
	ConsecutiveFailures prometheus.Gauge
	ProviderAttribution *prometheus.CounterVec
}

// NewMetrics builds and registers the LLM worker's metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_analyses_total",
			Help: "Total LLM analysis attempts broken out by outcome (success/malformed_json/provider_unreachable)",
		}, []string{"outcome"}),

		FreshQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "llm_fresh_queue_depth",
			Help: "Current depth of the in-memory fresh LLM queue",
		}),

		ConsecutiveFailures: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "llm_consecutive_failures",
			Help: "Current count of consecutive LLM worker failures since the last success",
		}),

		ProviderAttribution: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_provider_attribution_total",
			Help: "Total successful analyses broken out by the provider that produced them",
		}, []string{"provider"}),
	}
}

// RecordAnalysis records one analysis attempt's outcome.
func (m *Metrics) RecordAnalysis(outcome string) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

// RecordProvider attributes one successful analysis to the given provider.
func (m *Metrics) RecordProvider(provider string) {
	if provider == "" {
		return
	}
	m.ProviderAttribution.WithLabelValues(provider).Inc()
}

// RecordQueueDepth sets the current fresh-queue depth gauge.
func (m *Metrics) RecordQueueDepth(n int) {
	m.FreshQueueDepth.Set(float64(n))
}

// RecordConsecutiveFailures sets the current consecutive-failure gauge.
func (m *Metrics) RecordConsecutiveFailures(n int) {
	m.ConsecutiveFailures.Set(float64(n))
}
