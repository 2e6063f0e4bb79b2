package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"relay-hq/triton/pkg/config"
)

// RuleMetrics tracks trigger dispatch outcomes per rule.
//
// Metrics:
//   - triton_rule_matches_total: trigger events that matched a rule
//   - triton_rule_skips_total: trigger events a rule declined
//   - triton_rule_match_duration_seconds: per-rule condition evaluation time
//
// RuleMetrics satisfies the dispatcher's Recorder interface.
type RuleMetrics struct {
	matchesTotal  *prometheus.CounterVec
	skipsTotal    *prometheus.CounterVec
	matchDuration prometheus.Histogram
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_matches_total",
				Help:      "Total number of trigger events that matched a rule",
			},
			[]string{"rule_id"},
		),

		skipsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_skips_total",
				Help:      "Total number of trigger events a rule declined",
			},
			[]string{"rule_id"},
		),

		matchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_match_duration_seconds",
				Help:      "Duration of per-rule condition evaluation in seconds",
				// Condition evaluation is in-memory map comparison, so sub-ms.
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~260ms
			},
		),
	}

	registry.MustRegister(rm.matchesTotal, rm.skipsTotal, rm.matchDuration)
	return rm
}

// RecordMatch records a rule match and the time spent evaluating it.
func (rm *RuleMetrics) RecordMatch(ruleID string, duration time.Duration) {
	rm.matchesTotal.WithLabelValues(ruleID).Inc()
	rm.matchDuration.Observe(duration.Seconds())
}

// RecordSkip records a trigger event the rule did not match.
func (rm *RuleMetrics) RecordSkip(ruleID string) {
	rm.skipsTotal.WithLabelValues(ruleID).Inc()
}
