package monitor

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the per-rule ring buffer capacity.
// Default: 100
const DefaultCapacity = 100

// Config configures the performance monitor.
type Config struct {
	// Capacity is the per-rule sample buffer size. Default: 100
	Capacity int `yaml:"capacity"`

	// LowSuccessThreshold flags rules whose success rate falls below it
	// as review candidates. Default: 0.5
	LowSuccessThreshold float64 `yaml:"low_success_threshold"`

	// SlowThresholdMs flags rules whose average duration exceeds it.
	// Default: 5000
	SlowThresholdMs float64 `yaml:"slow_threshold_ms"`
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:            DefaultCapacity,
		LowSuccessThreshold: 0.5,
		SlowThresholdMs:     5000,
	}
}

// Stats is a read-side snapshot of one rule's performance record.
type Stats struct {
	RuleID        string
	SampleCount   int
	SuccessRate   float64
	AvgDurationMs float64
	LastRecorded  time.Time
}

// ReviewCandidate flags a rule for human review. Advisory only; the
// monitor never deactivates a rule.
type ReviewCandidate struct {
	RuleID        string
	SuccessRate   float64
	AvgDurationMs float64
	Reason        string
}

// record is one rule's performance history.
type record struct {
	ring          *ring
	successRate   float64
	avgDurationMs float64
	lastRecorded  time.Time
}

// Monitor aggregates per-rule execution history in fixed-capacity ring
// buffers and derives optimization suggestions from it.
type Monitor struct {
	config Config
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]*record

	// suggested is the last computed processing-order hint, invalidated
	// on rule mutation.
	suggested      []string
	suggestedValid bool
}

// New creates a performance monitor.
func New(config Config, logger *slog.Logger) *Monitor {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.LowSuccessThreshold <= 0 {
		config.LowSuccessThreshold = 0.5
	}
	if config.SlowThresholdMs <= 0 {
		config.SlowThresholdMs = 5000
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		config:  config,
		logger:  logger.With("component", "automation.monitor"),
		records: make(map[string]*record),
	}
}

// Record appends one execution sample to the rule's ring buffer and
// recomputes its derived statistics.
func (m *Monitor) Record(ruleID string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[ruleID]
	if !ok {
		rec = &record{ring: newRing(m.config.Capacity)}
		m.records[ruleID] = rec
	}

	rec.ring.append(Sample{
		Timestamp:  time.Now(),
		DurationMs: float64(duration) / float64(time.Millisecond),
		Success:    success,
	})
	rec.successRate, rec.avgDurationMs = rec.ring.stats()
	rec.lastRecorded = time.Now()

	m.suggestedValid = false
}

// Stats returns the current statistics for one rule.
func (m *Monitor) Stats(ruleID string) (Stats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[ruleID]
	if !ok {
		return Stats{}, false
	}
	return Stats{
		RuleID:        ruleID,
		SampleCount:   rec.ring.len(),
		SuccessRate:   rec.successRate,
		AvgDurationMs: rec.avgDurationMs,
		LastRecorded:  rec.lastRecorded,
	}, true
}

// AllStats returns statistics for every tracked rule, sorted by rule id.
func (m *Monitor) AllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Stats, 0, len(m.records))
	for id, rec := range m.records {
		out = append(out, Stats{
			RuleID:        id,
			SampleCount:   rec.ring.len(),
			SuccessRate:   rec.successRate,
			AvgDurationMs: rec.avgDurationMs,
			LastRecorded:  rec.lastRecorded,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}

// Delete removes a rule's performance record. Called when the rule is
// deleted from the store.
func (m *Monitor) Delete(ruleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, ruleID)
	m.suggestedValid = false
}

// Invalidate drops cached derived data for a rule after it was created or
// updated. History is kept; only the order hint is recomputed.
func (m *Monitor) Invalidate(ruleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.suggestedValid = false
}

// SuggestedOrder returns rule ids ranked by successRate * priority
// descending. Rules without samples rank by priority alone, as if their
// success rate were 1. This is a processing hint; it never reorders items
// already in a queue. The result is cached until the next Record or rule
// mutation.
func (m *Monitor) SuggestedOrder(priorities map[string]int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.suggestedValid {
		return append([]string(nil), m.suggested...)
	}

	type ranked struct {
		id    string
		score float64
	}

	all := make([]ranked, 0, len(priorities))
	for id, priority := range priorities {
		rate := 1.0
		if rec, ok := m.records[id]; ok && rec.ring.len() > 0 {
			rate = rec.successRate
		}
		all = append(all, ranked{id: id, score: rate * float64(priority)})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})

	m.suggested = make([]string, len(all))
	for i, r := range all {
		m.suggested[i] = r.id
	}
	m.suggestedValid = true

	return append([]string(nil), m.suggested...)
}

// ReviewCandidates returns rules whose statistics breach the configured
// thresholds. A rule can appear for both reasons at once; the reason
// string names every breach.
func (m *Monitor) ReviewCandidates() []ReviewCandidate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ReviewCandidate
	for id, rec := range m.records {
		if rec.ring.len() == 0 {
			continue
		}

		var reason string
		if rec.successRate < m.config.LowSuccessThreshold {
			reason = "low success rate"
		}
		if rec.avgDurationMs > m.config.SlowThresholdMs {
			if reason != "" {
				reason += ", slow execution"
			} else {
				reason = "slow execution"
			}
		}
		if reason == "" {
			continue
		}

		out = append(out, ReviewCandidate{
			RuleID:        id,
			SuccessRate:   rec.successRate,
			AvgDurationMs: rec.avgDurationMs,
			Reason:        reason,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}

// RecordSnapshot is the persisted form of one rule's history.
type RecordSnapshot struct {
	RuleID  string   `json:"rule_id"`
	Samples []Sample `json:"samples"`
}

// Export returns every rule's sample history for snapshotting.
func (m *Monitor) Export() []RecordSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RecordSnapshot, 0, len(m.records))
	for id, rec := range m.records {
		out = append(out, RecordSnapshot{RuleID: id, Samples: rec.ring.samples()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}

// Import replaces the monitor state from a snapshot. Samples beyond the
// configured capacity keep only the newest.
func (m *Monitor) Import(snapshots []RecordSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]*record, len(snapshots))
	for _, snap := range snapshots {
		rec := &record{ring: newRing(m.config.Capacity)}
		for _, s := range snap.Samples {
			rec.ring.append(s)
		}
		rec.successRate, rec.avgDurationMs = rec.ring.stats()
		if n := rec.ring.len(); n > 0 {
			rec.lastRecorded = snap.Samples[len(snap.Samples)-1].Timestamp
		}
		m.records[snap.RuleID] = rec
	}
	m.suggestedValid = false
}
