package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"relay-hq/triton/pkg/automation/queue"
)

// EvaluationConfig configures the evaluation scheduler.
type EvaluationConfig struct {
	// Interval is the tick cadence. Default: 5s
	Interval time.Duration `yaml:"interval"`

	// BatchSize is the maximum number of items pulled per tick.
	// Default: 50
	BatchSize int `yaml:"batch_size"`

	// MaxConcurrent bounds simultaneous evaluations within one tick.
	// Default: 10
	MaxConcurrent int `yaml:"max_concurrent"`
}

// DefaultEvaluationConfig returns the default evaluation configuration.
func DefaultEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		Interval:      5 * time.Second,
		BatchSize:     50,
		MaxConcurrent: 10,
	}
}

// EvaluationScheduler pulls pending evaluation items on a cooperative tick,
// re-checks each item's rule conditions against the stored context, and
// promotes matches to the execution queue.
//
// Ticks are single-flight: a tick arriving while the previous one is still
// running is skipped entirely, never queued.
type EvaluationScheduler struct {
	config  EvaluationConfig
	pending *queue.Queue
	exec    *queue.Queue
	rules   RuleGetter
	matcher Matcher
	logger  *slog.Logger

	tickMu sync.Mutex

	processed    atomic.Int64
	promoted     atomic.Int64
	dropped      atomic.Int64
	skippedTicks atomic.Int64
	lastTickNs   atomic.Int64
}

// NewEvaluationScheduler creates an evaluation scheduler. pending is the
// evaluation queue, exec the execution queue matches are promoted into.
func NewEvaluationScheduler(config EvaluationConfig, pending, exec *queue.Queue, rules RuleGetter, matcher Matcher, logger *slog.Logger) *EvaluationScheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &EvaluationScheduler{
		config:  config,
		pending: pending,
		exec:    exec,
		rules:   rules,
		matcher: matcher,
		logger:  logger.With("component", "automation.scheduler.evaluation"),
	}
}

// Config returns the effective configuration.
func (s *EvaluationScheduler) Config() EvaluationConfig {
	return s.config
}

// Tick runs one evaluation pass. Returns the number of items processed and
// whether the tick ran at all (false when skipped by the single-flight
// guard).
func (s *EvaluationScheduler) Tick(ctx context.Context) (int, bool) {
	if !s.tickMu.TryLock() {
		s.skippedTicks.Add(1)
		s.logger.Debug("evaluation tick skipped, previous tick still running")
		return 0, false
	}
	defer s.tickMu.Unlock()

	start := time.Now()
	batch := s.pending.DequeueBatch(s.config.BatchSize)
	if len(batch) == 0 {
		s.lastTickNs.Store(int64(time.Since(start)))
		return 0, true
	}

	// Fan out bounded by MaxConcurrent; the tick waits for the whole batch.
	sem := make(chan struct{}, s.config.MaxConcurrent)
	var wg sync.WaitGroup
	for _, item := range batch {
		select {
		case <-ctx.Done():
			// Put the unstarted remainder back; in-flight work finishes.
			s.pending.Enqueue(item)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(item *queue.Item) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("evaluation panicked",
						"item_id", item.ID,
						"rule_id", item.RuleID,
						"panic", r,
					)
				}
			}()
			s.evaluate(item)
		}(item)
	}
	wg.Wait()

	s.processed.Add(int64(len(batch)))
	s.lastTickNs.Store(int64(time.Since(start)))

	s.logger.Debug("evaluation tick complete",
		"batch", len(batch),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return len(batch), true
}

// evaluate re-checks one item's rule and promotes it on match.
func (s *EvaluationScheduler) evaluate(item *queue.Item) {
	r, ok := s.rules.Get(item.RuleID)
	if !ok {
		s.dropped.Add(1)
		s.logger.Warn("dropping evaluation item, rule not found",
			"item_id", item.ID,
			"rule_id", item.RuleID,
		)
		return
	}
	if !r.IsActive {
		s.dropped.Add(1)
		s.logger.Debug("dropping evaluation item, rule inactive",
			"item_id", item.ID,
			"rule_id", item.RuleID,
		)
		return
	}

	if !s.matcher.MatchRule(r, item.Context, nil) {
		return
	}

	s.exec.Enqueue(&queue.Item{
		ID:        item.ID,
		Kind:      queue.KindExecution,
		RuleID:    r.ID,
		ContactID: item.ContactID,
		Context:   item.Context,
		Priority:  r.Priority,
	})
	s.promoted.Add(1)
}

// Processed returns the total number of items evaluated.
func (s *EvaluationScheduler) Processed() int64 { return s.processed.Load() }

// Promoted returns the number of items promoted to the execution queue.
func (s *EvaluationScheduler) Promoted() int64 { return s.promoted.Load() }

// SkippedTicks returns the number of ticks skipped by the single-flight guard.
func (s *EvaluationScheduler) SkippedTicks() int64 { return s.skippedTicks.Load() }

// LastTickDuration returns the duration of the most recent completed tick.
func (s *EvaluationScheduler) LastTickDuration() time.Duration {
	return time.Duration(s.lastTickNs.Load())
}
