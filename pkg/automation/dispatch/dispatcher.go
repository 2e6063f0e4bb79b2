package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"relay-hq/triton/pkg/automation/queue"
	"relay-hq/triton/pkg/automation/rule"
)

// RuleSource provides the active rule set to match against.
type RuleSource interface {
	ListActive() []*rule.Rule
}

// Sink receives the execution items produced by matched rules.
type Sink interface {
	Enqueue(item *queue.Item)
}

// Recorder receives per-rule match metrics. Implemented by the telemetry
// collector; a nil Recorder disables recording.
type Recorder interface {
	RecordMatch(ruleID string, duration time.Duration)
	RecordSkip(ruleID string)
}

// Dispatcher is the single trigger-matching pathway. All upstream event
// kinds (contact events, message events, scheduled events) funnel through
// Dispatch.
type Dispatcher struct {
	rules    RuleSource
	sink     Sink
	recorder Recorder
	logger   *slog.Logger

	matched int64
	skipped int64
}

// New creates a dispatcher. recorder may be nil.
func New(rules RuleSource, sink Sink, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		rules:    rules,
		sink:     sink,
		recorder: recorder,
		logger:   logger.With("component", "automation.dispatch"),
	}
}

// Dispatch matches a trigger event against all active rules of the same
// trigger type and enqueues one execution item per fully-matched rule, at
// the rule's priority. It returns the number of matched rules.
//
// Condition evaluation is fail-closed: an evaluation error counts as
// "condition false", is logged, and never propagates out of Dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, triggerType string, data, trigCtx map[string]any) int {
	matched := 0

	for _, r := range d.rules.ListActive() {
		select {
		case <-ctx.Done():
			return matched
		default:
		}

		if r.TriggerType != triggerType {
			continue
		}

		start := time.Now()
		ok := d.matchConditions(r, data, trigCtx)

		if !ok {
			atomic.AddInt64(&d.skipped, 1)
			if d.recorder != nil {
				d.recorder.RecordSkip(r.ID)
			}
			continue
		}

		item := &queue.Item{
			ID:        uuid.New().String(),
			Kind:      queue.KindExecution,
			RuleID:    r.ID,
			ContactID: contactID(data, trigCtx),
			Context:   mergeContext(data, trigCtx),
			Priority:  r.Priority,
		}
		d.sink.Enqueue(item)

		matched++
		atomic.AddInt64(&d.matched, 1)
		if d.recorder != nil {
			d.recorder.RecordMatch(r.ID, time.Since(start))
		}

		d.logger.Debug("rule matched",
			"rule_id", r.ID,
			"trigger_type", triggerType,
			"priority", r.Priority,
		)
	}

	return matched
}

// MatchRule reports whether a single rule matches the trigger payload.
// Used by the evaluation scheduler to re-check stored items.
func (d *Dispatcher) MatchRule(r *rule.Rule, data, trigCtx map[string]any) bool {
	return d.matchConditions(r, data, trigCtx)
}

// matchConditions applies AND semantics: all conditions must hold and an
// empty condition list always matches.
func (d *Dispatcher) matchConditions(r *rule.Rule, data, trigCtx map[string]any) bool {
	for _, cond := range r.Conditions {
		value, defined := ResolveField(cond.Field, data, trigCtx)

		ok, err := evaluateOperator(cond.Operator, value, defined, cond.Value)
		if err != nil {
			d.logger.Warn("condition evaluation failed, treating as no match",
				"rule_id", r.ID,
				"field", cond.Field,
				"operator", string(cond.Operator),
				"error", err,
			)
			return false
		}
		if !ok {
			return false
		}
	}

	return true
}

// Matched returns the total number of rule matches since start.
func (d *Dispatcher) Matched() int64 {
	return atomic.LoadInt64(&d.matched)
}

// Skipped returns the skip counter: rules whose trigger type matched but
// whose conditions did not.
func (d *Dispatcher) Skipped() int64 {
	return atomic.LoadInt64(&d.skipped)
}

// contactID pulls the contact binding out of the trigger payload, falling
// back to the trigger context.
func contactID(data, trigCtx map[string]any) string {
	if v, ok := lookup(data, []string{"contact_id"}); ok {
		return coerceString(v)
	}
	if v, ok := lookup(trigCtx, []string{"contact_id"}); ok {
		return coerceString(v)
	}
	return ""
}

// mergeContext folds payload over context so queue items carry everything
// needed for re-evaluation, with payload fields taking precedence.
func mergeContext(data, trigCtx map[string]any) map[string]any {
	merged := make(map[string]any, len(data)+len(trigCtx))
	for k, v := range trigCtx {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}
