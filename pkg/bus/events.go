package bus

import (
	"time"

	"relay-hq/triton/pkg/automation/rule"
)

// Kind identifies an outbound event type on the bus.
type Kind string

// Outbound event kinds.
const (
	KindRuleCreated      Kind = "rule.created"
	KindRuleUpdated      Kind = "rule.updated"
	KindRuleDeleted      Kind = "rule.deleted"
	KindWorkflowStarted  Kind = "workflow.started"
	KindWorkflowFinished Kind = "workflow.finished"
	KindAnomalyDetected  Kind = "automation.anomaly.detected"
	KindMetricsUpdated   Kind = "automation.metrics.updated"
	KindExecutionFailed  Kind = "automation.execution.failed"
	KindError            Kind = "automation.error"
)

// Event is the tagged union of everything the agent emits.
// Subscribers switch on the concrete type or on Kind().
type Event interface {
	Kind() Kind
}

// RuleCreated is emitted after a rule is created in the store.
type RuleCreated struct {
	Rule *rule.Rule
}

// Kind returns the event kind.
func (RuleCreated) Kind() Kind { return KindRuleCreated }

// RuleUpdated is emitted after a rule is updated in the store.
type RuleUpdated struct {
	Rule *rule.Rule
}

// Kind returns the event kind.
func (RuleUpdated) Kind() Kind { return KindRuleUpdated }

// RuleDeleted is emitted after a rule is removed from the store.
type RuleDeleted struct {
	RuleID string
}

// Kind returns the event kind.
func (RuleDeleted) Kind() Kind { return KindRuleDeleted }

// WorkflowStarted is emitted when a workflow enters the running state.
type WorkflowStarted struct {
	WorkflowID string
	ContactID  string
}

// Kind returns the event kind.
func (WorkflowStarted) Kind() Kind { return KindWorkflowStarted }

// WorkflowFinished is emitted when a workflow reaches a terminal state.
type WorkflowFinished struct {
	WorkflowID string
	ContactID  string
	Success    bool
	Duration   time.Duration
	Result     any
}

// Kind returns the event kind.
func (WorkflowFinished) Kind() Kind { return KindWorkflowFinished }

// Anomaly describes a single threshold breach found by the optimization pass.
type Anomaly struct {
	// Type is the breached dimension: "error_rate", "queue_depth" or
	// "tick_duration".
	Type string

	// Value is the observed value, Threshold the configured limit.
	Value     float64
	Threshold float64

	// Detail is a human-readable description.
	Detail string
}

// AnomalyDetected carries the anomalies found by one optimization pass.
// Anomalies are advisory; the agent never auto-remediates.
type AnomalyDetected struct {
	Anomalies []Anomaly
	At        time.Time
}

// Kind returns the event kind.
func (AnomalyDetected) Kind() Kind { return KindAnomalyDetected }

// MetricsUpdated carries an aggregate metrics snapshot from the optimization
// pass, for dashboards and notification layers.
type MetricsUpdated struct {
	Metrics map[string]any
	State   map[string]any
	At      time.Time
}

// Kind returns the event kind.
func (MetricsUpdated) Kind() Kind { return KindMetricsUpdated }

// ExecutionFailed is the permanent-failure signal, emitted exactly once per
// queue item when its attempts are exhausted.
type ExecutionFailed struct {
	ItemID    string
	RuleID    string
	ContactID string
	Attempts  int
	Err       error
}

// Kind returns the event kind.
func (ExecutionFailed) Kind() Kind { return KindExecutionFailed }

// Error reports a non-fatal internal error with its originating method.
type Error struct {
	Method  string
	Err     error
	Context map[string]any
}

// Kind returns the event kind.
func (Error) Kind() Kind { return KindError }
