package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for the rule engine.
type Metrics struct {
	RuleMatchesTotal  *prometheus.CounterVec
	BoostsAppliedTotal *prometheus.CounterVec
	ItemsProcessedTotal prometheus.Counter
}

// NewMetrics builds and registers the rule engine's metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RuleMatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rules_matches_total",
			Help: "Total rule matches broken out by rule name",
		}, []string{"rule"}),

		BoostsAppliedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rules_stakeholder_boosts_total",
			Help: "Total implicit stakeholder mention boosts applied, broken out by boost kind",
		}, []string{"kind"}),

		ItemsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rules_items_processed_total",
			Help: "Total items run through the rule engine",
		}),
	}
}

// RecordRuleMatch records one matching rule by name.
func (m *Metrics) RecordRuleMatch(name string) {
	m.RuleMatchesTotal.WithLabelValues(name).Inc()
}

// RecordBoost records one applied stakeholder boost by kind ("direct",
// "member", "question", "criticism").
func (m *Metrics) RecordBoost(kind string) {
	m.BoostsAppliedTotal.WithLabelValues(kind).Inc()
}

// RecordItemProcessed records one item run through Apply.
func (m *Metrics) RecordItemProcessed() {
	m.ItemsProcessedTotal.Inc()
}
