package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"relay-hq/triton/pkg/automation/queue"
	"relay-hq/triton/pkg/automation/rule"
	"relay-hq/triton/pkg/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRules is a RuleGetter over a fixed map.
type fakeRules struct {
	mu    sync.Mutex
	rules map[string]*rule.Rule
}

func newFakeRules(rules ...*rule.Rule) *fakeRules {
	f := &fakeRules{rules: make(map[string]*rule.Rule)}
	for _, r := range rules {
		f.rules[r.ID] = r
	}
	return f
}

func (f *fakeRules) Get(id string) (*rule.Rule, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// fakeMatcher matches everything unless told otherwise.
type fakeMatcher struct {
	match func(r *rule.Rule, data, trigCtx map[string]any) bool
}

func (f *fakeMatcher) MatchRule(r *rule.Rule, data, trigCtx map[string]any) bool {
	if f.match == nil {
		return true
	}
	return f.match(r, data, trigCtx)
}

// fakeContacts returns a canned contact.
type fakeContacts struct {
	err error
}

func (f *fakeContacts) FetchContact(ctx context.Context, contactID string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"id": contactID}, nil
}

// fakeActions records executions and fails on demand.
type fakeActions struct {
	mu      sync.Mutex
	runs    []string
	fail    func(r *rule.Rule) error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeActions) Execute(ctx context.Context, r *rule.Rule, contact, itemCtx map[string]any) error {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	f.runs = append(f.runs, r.ID)
	f.mu.Unlock()

	if f.fail != nil {
		return f.fail(r)
	}
	return nil
}

func (f *fakeActions) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

// captureSamples records monitor samples.
type captureSamples struct {
	mu      sync.Mutex
	samples []struct {
		ruleID  string
		success bool
	}
}

func (c *captureSamples) Record(ruleID string, duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, struct {
		ruleID  string
		success bool
	}{ruleID, success})
}

// captureSuccess records store bookkeeping calls.
type captureSuccess struct {
	mu  sync.Mutex
	ids []string
}

func (c *captureSuccess) RecordExecution(ctx context.Context, ruleID string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ruleID)
}

func activeRule(id string, priority int) *rule.Rule {
	return &rule.Rule{
		ID:          id,
		Name:        "rule " + id,
		TriggerType: "message_received",
		Priority:    priority,
		IsActive:    true,
	}
}

func execItem(id, ruleID string, priority int) *queue.Item {
	return &queue.Item{
		ID:        id,
		Kind:      queue.KindExecution,
		RuleID:    ruleID,
		ContactID: "contact-1",
		Priority:  priority,
	}
}

func TestEvaluationPromotesMatches(t *testing.T) {
	pending := queue.New()
	exec := queue.New()
	defer pending.Close()
	defer exec.Close()

	rules := newFakeRules(activeRule("r1", 7))
	s := NewEvaluationScheduler(DefaultEvaluationConfig(), pending, exec, rules, &fakeMatcher{}, testLogger())

	pending.Enqueue(&queue.Item{
		ID:        "item-1",
		Kind:      queue.KindEvaluation,
		RuleID:    "r1",
		ContactID: "contact-1",
		Context:   map[string]any{"text": "help"},
		Priority:  1,
	})

	n, ran := s.Tick(context.Background())
	if !ran || n != 1 {
		t.Fatalf("Tick() = (%d, %v), want (1, true)", n, ran)
	}

	promoted := exec.DequeueBatch(10)
	if len(promoted) != 1 {
		t.Fatalf("execution queue has %d items, want 1", len(promoted))
	}
	got := promoted[0]
	if got.RuleID != "r1" || got.Kind != queue.KindExecution {
		t.Errorf("promoted item = %+v", got)
	}
	if got.Priority != 7 {
		t.Errorf("promoted priority = %d, want rule priority 7", got.Priority)
	}
}

func TestEvaluationDropsMissingAndInactive(t *testing.T) {
	pending := queue.New()
	exec := queue.New()
	defer pending.Close()
	defer exec.Close()

	inactive := activeRule("r-off", 1)
	inactive.IsActive = false
	rules := newFakeRules(inactive)

	s := NewEvaluationScheduler(DefaultEvaluationConfig(), pending, exec, rules, &fakeMatcher{}, testLogger())

	pending.Enqueue(execItem("item-1", "r-missing", 1))
	pending.Enqueue(execItem("item-2", "r-off", 1))

	if _, ran := s.Tick(context.Background()); !ran {
		t.Fatal("tick was skipped")
	}

	if exec.Len() != 0 {
		t.Errorf("execution queue has %d items, want 0", exec.Len())
	}
}

func TestEvaluationNonMatchNotPromoted(t *testing.T) {
	pending := queue.New()
	exec := queue.New()
	defer pending.Close()
	defer exec.Close()

	rules := newFakeRules(activeRule("r1", 1))
	matcher := &fakeMatcher{match: func(*rule.Rule, map[string]any, map[string]any) bool { return false }}
	s := NewEvaluationScheduler(DefaultEvaluationConfig(), pending, exec, rules, matcher, testLogger())

	pending.Enqueue(execItem("item-1", "r1", 1))
	s.Tick(context.Background())

	if exec.Len() != 0 {
		t.Errorf("non-matching item was promoted")
	}
	if s.Promoted() != 0 {
		t.Errorf("Promoted() = %d, want 0", s.Promoted())
	}
}

func TestEvaluationBatchSize(t *testing.T) {
	pending := queue.New()
	exec := queue.New()
	defer pending.Close()
	defer exec.Close()

	rules := newFakeRules(activeRule("r1", 1))
	cfg := DefaultEvaluationConfig()
	cfg.BatchSize = 3
	s := NewEvaluationScheduler(cfg, pending, exec, rules, &fakeMatcher{}, testLogger())

	for i := 0; i < 5; i++ {
		pending.Enqueue(execItem(fmt.Sprintf("item-%d", i), "r1", 1))
	}

	n, _ := s.Tick(context.Background())
	if n != 3 {
		t.Errorf("first tick processed %d, want 3", n)
	}
	n, _ = s.Tick(context.Background())
	if n != 2 {
		t.Errorf("second tick processed %d, want 2", n)
	}
}

func TestExecutionSuccessPath(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	rules := newFakeRules(activeRule("r1", 5))
	actions := &fakeActions{}
	samples := &captureSamples{}
	success := &captureSuccess{}

	s := NewExecutionScheduler(DefaultExecutionConfig(), pending, rules, &fakeContacts{}, actions,
		queue.DefaultBackoffPolicy(), success, samples, nil, testLogger())

	pending.Enqueue(execItem("item-1", "r1", 5))

	n, ran := s.Tick(context.Background())
	if !ran || n != 1 {
		t.Fatalf("Tick() = (%d, %v), want (1, true)", n, ran)
	}

	if got := actions.executed(); len(got) != 1 || got[0] != "r1" {
		t.Errorf("executed rules = %v, want [r1]", got)
	}
	if len(success.ids) != 1 || success.ids[0] != "r1" {
		t.Errorf("RecordExecution calls = %v, want [r1]", success.ids)
	}
	if len(samples.samples) != 1 || !samples.samples[0].success {
		t.Errorf("samples = %+v, want one success", samples.samples)
	}
	if s.Executed() != 1 {
		t.Errorf("Executed() = %d, want 1", s.Executed())
	}
}

func TestExecutionPriorityOrder(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	rules := newFakeRules(activeRule("r1", 1), activeRule("r5", 5), activeRule("r3", 3))
	actions := &fakeActions{}

	cfg := DefaultExecutionConfig()
	cfg.MaxParallel = 1 // serialize so run order is observable
	s := NewExecutionScheduler(cfg, pending, rules, &fakeContacts{}, actions,
		queue.DefaultBackoffPolicy(), nil, nil, nil, testLogger())

	pending.Enqueue(execItem("a", "r1", 1))
	pending.Enqueue(execItem("b", "r5", 5))
	pending.Enqueue(execItem("c", "r3", 3))

	for i := 0; i < 3; i++ {
		s.Tick(context.Background())
	}

	want := []string{"r5", "r3", "r1"}
	got := actions.executed()
	if len(got) != len(want) {
		t.Fatalf("executed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExecutionDropsMissingAndInactive(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	inactive := activeRule("r-off", 1)
	inactive.IsActive = false
	rules := newFakeRules(inactive)
	actions := &fakeActions{}

	s := NewExecutionScheduler(DefaultExecutionConfig(), pending, rules, &fakeContacts{}, actions,
		queue.DefaultBackoffPolicy(), nil, nil, nil, testLogger())

	pending.Enqueue(execItem("a", "r-missing", 1))
	pending.Enqueue(execItem("b", "r-off", 1))

	s.Tick(context.Background())

	if len(actions.executed()) != 0 {
		t.Errorf("dropped items were executed: %v", actions.executed())
	}
	if s.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", s.Dropped())
	}
	if s.Failed() != 0 {
		t.Errorf("Dropped items counted as failures: Failed() = %d", s.Failed())
	}
}

func TestExecutionRetryThenPermanentFailure(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	b := bus.New()
	defer b.Close()
	events := b.Subscribe()

	rules := newFakeRules(activeRule("r1", 1))
	actions := &fakeActions{fail: func(*rule.Rule) error { return errors.New("downstream unavailable") }}
	samples := &captureSamples{}

	policy := queue.BackoffPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Factor:      2.0,
		MaxDelay:    10 * time.Millisecond,
	}
	s := NewExecutionScheduler(DefaultExecutionConfig(), pending, rules, &fakeContacts{}, actions,
		policy, nil, samples, b, testLogger())

	pending.Enqueue(execItem("doomed", "r1", 1))

	// Keep ticking until the item has burned through its retries.
	deadline := time.Now().Add(5 * time.Second)
	for s.Discarded() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("item never discarded: failed=%d", s.Failed())
		}
		s.Tick(context.Background())
		time.Sleep(2 * time.Millisecond)
	}

	// MaxAttempts=3 means 3 retried failures plus the final one.
	if s.Failed() != 4 {
		t.Errorf("Failed() = %d, want 4", s.Failed())
	}
	if s.Discarded() != 1 {
		t.Errorf("Discarded() = %d, want 1", s.Discarded())
	}

	// Exactly one permanent-failure event.
	select {
	case ev := <-events:
		failure, ok := ev.(bus.ExecutionFailed)
		if !ok {
			t.Fatalf("event = %T, want bus.ExecutionFailed", ev)
		}
		if failure.ItemID != "doomed" || failure.RuleID != "r1" {
			t.Errorf("failure event = %+v", failure)
		}
		if failure.Attempts != 3 {
			t.Errorf("failure.Attempts = %d, want 3", failure.Attempts)
		}
	case <-time.After(time.Second):
		t.Fatal("no permanent-failure event received")
	}

	select {
	case ev := <-events:
		t.Fatalf("second event received: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	// Every attempt produced a failure sample.
	if len(samples.samples) != 4 {
		t.Errorf("recorded %d samples, want 4", len(samples.samples))
	}
	for i, sm := range samples.samples {
		if sm.success {
			t.Errorf("sample[%d] marked success", i)
		}
	}
}

func TestExecutionRetryDelaysNonDecreasing(t *testing.T) {
	policy := queue.DefaultBackoffPolicy()

	var prev time.Duration
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		d := policy.Delay(attempt)
		if d < prev {
			t.Errorf("Delay(%d) = %v, less than previous %v", attempt, d, prev)
		}
		if d > policy.MaxDelay {
			t.Errorf("Delay(%d) = %v exceeds MaxDelay %v", attempt, d, policy.MaxDelay)
		}
		prev = d
	}
}

func TestExecutionActionTimeout(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	rules := newFakeRules(activeRule("r1", 1))
	actions := &fakeActions{block: make(chan struct{})} // never released: relies on ctx
	defer close(actions.block)

	cfg := DefaultExecutionConfig()
	cfg.ActionTimeout = 20 * time.Millisecond
	s := NewExecutionScheduler(cfg, pending, rules, &fakeContacts{}, actions,
		queue.DefaultBackoffPolicy(), nil, nil, nil, testLogger())

	pending.Enqueue(execItem("hang", "r1", 1))

	start := time.Now()
	s.Tick(context.Background())
	elapsed := time.Since(start)

	if s.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1 (hang converted to retryable failure)", s.Failed())
	}
	if elapsed > 2*time.Second {
		t.Errorf("tick took %v, timeout did not fire", elapsed)
	}
}

func TestExecutionContactFetchFailureRetries(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	rules := newFakeRules(activeRule("r1", 1))
	actions := &fakeActions{}

	s := NewExecutionScheduler(DefaultExecutionConfig(), pending, rules,
		&fakeContacts{err: errors.New("contact service down")}, actions,
		queue.DefaultBackoffPolicy(), nil, nil, nil, testLogger())

	pending.Enqueue(execItem("a", "r1", 1))
	s.Tick(context.Background())

	if len(actions.executed()) != 0 {
		t.Error("action ran despite contact fetch failure")
	}
	if s.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", s.Failed())
	}
}

func TestExecutionPanicIsolation(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	rules := newFakeRules(activeRule("boom", 9), activeRule("fine", 1))
	actions := &fakeActions{fail: func(r *rule.Rule) error {
		if r.ID == "boom" {
			panic("exploded")
		}
		return nil
	}}

	s := NewExecutionScheduler(DefaultExecutionConfig(), pending, rules, &fakeContacts{}, actions,
		queue.DefaultBackoffPolicy(), nil, nil, nil, testLogger())

	pending.Enqueue(execItem("a", "boom", 9))
	pending.Enqueue(execItem("b", "fine", 1))

	n, ran := s.Tick(context.Background())
	if !ran || n != 2 {
		t.Fatalf("Tick() = (%d, %v), want (2, true)", n, ran)
	}

	found := false
	for _, id := range actions.executed() {
		if id == "fine" {
			found = true
		}
	}
	if !found {
		t.Error("panicking item aborted the rest of the batch")
	}
	if s.Failed() == 0 {
		t.Error("panic not recorded as failure")
	}
}

func TestSingleFlightTick(t *testing.T) {
	pending := queue.New()
	defer pending.Close()

	rules := newFakeRules(activeRule("r1", 1))
	block := make(chan struct{})
	actions := &fakeActions{block: block, entered: make(chan struct{}, 1)}

	s := NewExecutionScheduler(DefaultExecutionConfig(), pending, rules, &fakeContacts{}, actions,
		queue.DefaultBackoffPolicy(), nil, nil, nil, testLogger())

	pending.Enqueue(execItem("a", "r1", 1))

	done := make(chan struct{})
	go func() {
		s.Tick(context.Background())
		close(done)
	}()

	// Wait until the first tick is inside the action, then try to overlap.
	select {
	case <-actions.entered:
	case <-time.After(2 * time.Second):
		close(block)
		<-done
		t.Fatal("first tick never entered the action")
	}

	if _, ran := s.Tick(context.Background()); ran {
		t.Error("overlapping tick ran, want skip")
	}
	if s.SkippedTicks() != 1 {
		t.Errorf("SkippedTicks() = %d, want 1", s.SkippedTicks())
	}

	close(block)
	<-done

	// With the first tick finished the guard releases.
	if _, ran := s.Tick(context.Background()); !ran {
		t.Error("tick after completion was skipped")
	}
}
