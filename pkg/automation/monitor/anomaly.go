package monitor

import (
	"fmt"
	"time"
)

// Anomaly types.
const (
	AnomalyErrorRate    = "error_rate"
	AnomalyQueueDepth   = "queue_depth"
	AnomalyTickDuration = "tick_duration"
)

// Anomaly is a system-wide threshold breach. Anomalies are advisory and
// routed to observability only; nothing auto-remediates on them.
type Anomaly struct {
	Type      string
	Value     float64
	Threshold float64
	Detail    string
}

// Thresholds configures system-wide anomaly detection.
type Thresholds struct {
	// ErrorRate is the tolerated fraction of failed executions across all
	// rules, over the current sample windows. Default: 0.3
	ErrorRate float64 `yaml:"error_rate_threshold"`

	// QueueDepth is the tolerated total pending item count across both
	// queues. Default: 1000
	QueueDepth int `yaml:"queue_depth_threshold"`

	// TickDuration is the tolerated duration of a scheduler tick.
	// Default: 10s
	TickDuration time.Duration `yaml:"tick_duration_threshold"`
}

// DefaultThresholds returns the default anomaly thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRate:    0.3,
		QueueDepth:   1000,
		TickDuration: 10 * time.Second,
	}
}

// SystemStats is the observed state an optimization pass checks against
// the thresholds.
type SystemStats struct {
	// QueueDepth is the total pending item count across both queues.
	QueueDepth int

	// LastTickDuration is the duration of the most recent completed tick,
	// whichever scheduler ran it.
	LastTickDuration time.Duration
}

// DetectAnomalies compares the monitor's aggregate error rate and the
// supplied system stats against the thresholds.
func (m *Monitor) DetectAnomalies(t Thresholds, stats SystemStats) []Anomaly {
	if t.ErrorRate <= 0 {
		t.ErrorRate = 0.3
	}
	if t.QueueDepth <= 0 {
		t.QueueDepth = 1000
	}
	if t.TickDuration <= 0 {
		t.TickDuration = 10 * time.Second
	}

	var anomalies []Anomaly

	if rate, ok := m.aggregateErrorRate(); ok && rate > t.ErrorRate {
		anomalies = append(anomalies, Anomaly{
			Type:      AnomalyErrorRate,
			Value:     rate,
			Threshold: t.ErrorRate,
			Detail:    fmt.Sprintf("execution error rate %.2f exceeds %.2f", rate, t.ErrorRate),
		})
	}

	if stats.QueueDepth > t.QueueDepth {
		anomalies = append(anomalies, Anomaly{
			Type:      AnomalyQueueDepth,
			Value:     float64(stats.QueueDepth),
			Threshold: float64(t.QueueDepth),
			Detail:    fmt.Sprintf("queue depth %d exceeds %d", stats.QueueDepth, t.QueueDepth),
		})
	}

	if stats.LastTickDuration > t.TickDuration {
		anomalies = append(anomalies, Anomaly{
			Type:      AnomalyTickDuration,
			Value:     stats.LastTickDuration.Seconds(),
			Threshold: t.TickDuration.Seconds(),
			Detail:    fmt.Sprintf("tick took %s, threshold %s", stats.LastTickDuration, t.TickDuration),
		})
	}

	return anomalies
}

// aggregateErrorRate computes the failure fraction over every rule's
// current sample window. Returns ok=false when no samples exist.
func (m *Monitor) aggregateErrorRate() (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total, failures int
	for _, rec := range m.records {
		for _, s := range rec.ring.samples() {
			total++
			if !s.Success {
				failures++
			}
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(failures) / float64(total), true
}
