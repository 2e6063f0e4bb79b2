package scheduler

import (
	"context"
	"time"

	"relay-hq/triton/pkg/automation/rule"
)

// ContactSource fetches contact data for an execution. Implemented by the
// contact service client; the agent only sees this interface.
type ContactSource interface {
	FetchContact(ctx context.Context, contactID string) (map[string]any, error)
}

// ActionRunner executes a rule's action against a contact. Implemented by
// the notification/delivery layer.
type ActionRunner interface {
	Execute(ctx context.Context, r *rule.Rule, contact, itemCtx map[string]any) error
}

// RuleGetter looks up rules at execution time. Items referencing a missing
// rule are dropped, not failed.
type RuleGetter interface {
	Get(id string) (*rule.Rule, bool)
}

// Matcher re-checks a rule's conditions against stored item context.
// Implemented by the trigger dispatcher.
type Matcher interface {
	MatchRule(r *rule.Rule, data, trigCtx map[string]any) bool
}

// SuccessRecorder receives successful-execution bookkeeping. Implemented
// by the rule store.
type SuccessRecorder interface {
	RecordExecution(ctx context.Context, ruleID string, at time.Time)
}

// SampleRecorder receives execution samples. Implemented by the
// performance monitor.
type SampleRecorder interface {
	Record(ruleID string, duration time.Duration, success bool)
}
