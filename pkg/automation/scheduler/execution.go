package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"relay-hq/triton/pkg/automation/queue"
	"relay-hq/triton/pkg/bus"
)

// ExecutionConfig configures the execution scheduler.
type ExecutionConfig struct {
	// Interval is the tick cadence. Default: 5s
	Interval time.Duration `yaml:"interval"`

	// MaxParallel is the maximum number of items executed per tick, which
	// also bounds the goroutine fan-out. Default: 10
	MaxParallel int `yaml:"max_parallel"`

	// ActionTimeout caps one action run. A hang becomes a retryable
	// failure instead of wedging the tick. Default: 30s
	ActionTimeout time.Duration `yaml:"action_timeout"`
}

// DefaultExecutionConfig returns the default execution configuration.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Interval:      5 * time.Second,
		MaxParallel:   10,
		ActionTimeout: 30 * time.Second,
	}
}

// ExecutionScheduler runs matched rules against contacts. Each tick pulls
// up to MaxParallel items in priority order, fans them out, and waits for
// the whole batch. Failures retry with exponential backoff until the
// attempt budget is spent, then emit one permanent-failure event.
//
// A rule going inactive or being deleted does not preempt an item already
// dequeued; cancellation is best-effort and non-preemptive.
type ExecutionScheduler struct {
	config   ExecutionConfig
	pending  *queue.Queue
	rules    RuleGetter
	contacts ContactSource
	actions  ActionRunner
	backoff  queue.BackoffPolicy
	store    SuccessRecorder
	samples  SampleRecorder
	bus      *bus.Bus
	logger   *slog.Logger

	tickMu sync.Mutex

	executed     atomic.Int64
	failed       atomic.Int64
	discarded    atomic.Int64
	dropped      atomic.Int64
	skippedTicks atomic.Int64
	lastTickNs   atomic.Int64
}

// NewExecutionScheduler creates an execution scheduler. store, samples and
// b may be nil; the corresponding bookkeeping is skipped.
func NewExecutionScheduler(config ExecutionConfig, pending *queue.Queue, rules RuleGetter, contacts ContactSource, actions ActionRunner, backoff queue.BackoffPolicy, store SuccessRecorder, samples SampleRecorder, b *bus.Bus, logger *slog.Logger) *ExecutionScheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.MaxParallel <= 0 {
		config.MaxParallel = 10
	}
	if config.ActionTimeout <= 0 {
		config.ActionTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecutionScheduler{
		config:   config,
		pending:  pending,
		rules:    rules,
		contacts: contacts,
		actions:  actions,
		backoff:  backoff,
		store:    store,
		samples:  samples,
		bus:      b,
		logger:   logger.With("component", "automation.scheduler.execution"),
	}
}

// Config returns the effective configuration.
func (s *ExecutionScheduler) Config() ExecutionConfig {
	return s.config
}

// Tick runs one execution pass. Returns the number of items pulled and
// whether the tick ran (false when skipped by the single-flight guard).
func (s *ExecutionScheduler) Tick(ctx context.Context) (int, bool) {
	if !s.tickMu.TryLock() {
		s.skippedTicks.Add(1)
		s.logger.Debug("execution tick skipped, previous tick still running")
		return 0, false
	}
	defer s.tickMu.Unlock()

	start := time.Now()
	batch := s.pending.DequeueBatch(s.config.MaxParallel)
	if len(batch) == 0 {
		s.lastTickNs.Store(int64(time.Since(start)))
		return 0, true
	}

	var wg sync.WaitGroup
	for _, item := range batch {
		select {
		case <-ctx.Done():
			s.pending.Enqueue(item)
			continue
		default:
		}

		wg.Add(1)
		go func(item *queue.Item) {
			defer wg.Done()
			s.runItem(ctx, item)
		}(item)
	}
	wg.Wait()

	s.lastTickNs.Store(int64(time.Since(start)))

	s.logger.Debug("execution tick complete",
		"batch", len(batch),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return len(batch), true
}

// runItem executes one queue item. Panics and errors are isolated here so
// one bad item never aborts the rest of the batch.
func (s *ExecutionScheduler) runItem(ctx context.Context, item *queue.Item) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("execution panicked",
				"item_id", item.ID,
				"rule_id", item.RuleID,
				"panic", r,
			)
			s.fail(item, 0, fmt.Errorf("action panicked: %v", r))
		}
	}()

	r, ok := s.rules.Get(item.RuleID)
	if !ok {
		s.dropped.Add(1)
		s.logger.Warn("dropping execution item, rule not found",
			"item_id", item.ID,
			"rule_id", item.RuleID,
		)
		return
	}
	if !r.IsActive {
		s.dropped.Add(1)
		s.logger.Debug("dropping execution item, rule inactive",
			"item_id", item.ID,
			"rule_id", item.RuleID,
		)
		return
	}

	start := time.Now()

	contact, err := s.contacts.FetchContact(ctx, item.ContactID)
	if err != nil {
		s.fail(item, time.Since(start), fmt.Errorf("contact fetch failed: %w", err))
		return
	}

	actionCtx, cancel := context.WithTimeout(ctx, s.config.ActionTimeout)
	err = s.actions.Execute(actionCtx, r, contact, item.Context)
	cancel()

	duration := time.Since(start)

	if err != nil {
		s.fail(item, duration, err)
		return
	}

	s.executed.Add(1)
	if s.store != nil {
		s.store.RecordExecution(ctx, r.ID, time.Now())
	}
	if s.samples != nil {
		s.samples.Record(r.ID, duration, true)
	}

	s.logger.Debug("rule executed",
		"item_id", item.ID,
		"rule_id", r.ID,
		"contact_id", item.ContactID,
		"duration_ms", duration.Milliseconds(),
	)
}

// fail records a failed attempt and either schedules a retry or discards
// the item with exactly one permanent-failure event.
func (s *ExecutionScheduler) fail(item *queue.Item, duration time.Duration, err error) {
	s.failed.Add(1)
	if s.samples != nil {
		s.samples.Record(item.RuleID, duration, false)
	}

	if s.backoff.Exhausted(item.Attempts) {
		s.discarded.Add(1)
		s.logger.Warn("discarding execution item, attempts exhausted",
			"item_id", item.ID,
			"rule_id", item.RuleID,
			"attempts", item.Attempts,
			"error", err,
		)
		if s.bus != nil {
			s.bus.Publish(bus.ExecutionFailed{
				ItemID:    item.ID,
				RuleID:    item.RuleID,
				ContactID: item.ContactID,
				Attempts:  item.Attempts,
				Err:       err,
			})
		}
		return
	}

	item.Attempts++
	delay := s.backoff.Delay(item.Attempts)

	s.logger.Info("execution failed, scheduling retry",
		"item_id", item.ID,
		"rule_id", item.RuleID,
		"attempt", item.Attempts,
		"delay", delay,
		"error", err,
	)
	s.pending.EnqueueAfter(item, delay)
}

// Executed returns the number of successful executions.
func (s *ExecutionScheduler) Executed() int64 { return s.executed.Load() }

// Failed returns the number of failed attempts, including ones that later
// succeeded on retry.
func (s *ExecutionScheduler) Failed() int64 { return s.failed.Load() }

// Discarded returns the number of items discarded after exhausting retries.
func (s *ExecutionScheduler) Discarded() int64 { return s.discarded.Load() }

// Dropped returns the number of items dropped because their rule was
// missing or inactive at execution time.
func (s *ExecutionScheduler) Dropped() int64 { return s.dropped.Load() }

// SkippedTicks returns the number of ticks skipped by the single-flight guard.
func (s *ExecutionScheduler) SkippedTicks() int64 { return s.skippedTicks.Load() }

// LastTickDuration returns the duration of the most recent completed tick.
func (s *ExecutionScheduler) LastTickDuration() time.Duration {
	return time.Duration(s.lastTickNs.Load())
}
