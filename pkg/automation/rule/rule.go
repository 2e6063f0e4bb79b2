package rule

import (
	"time"
)

// Operator identifies a condition comparison operator.
type Operator string

// Supported condition operators.
const (
	// OperatorEquals matches when the field value equals the condition value.
	OperatorEquals Operator = "equals"

	// OperatorNotEquals matches when the field value differs from the condition value.
	OperatorNotEquals Operator = "not_equals"

	// OperatorContains matches when the field value, coerced to a string,
	// contains the condition value as a substring.
	OperatorContains Operator = "contains"

	// OperatorGreaterThan matches when both sides coerce to numbers and
	// the field value is strictly greater.
	OperatorGreaterThan Operator = "greater_than"

	// OperatorLessThan matches when both sides coerce to numbers and
	// the field value is strictly smaller.
	OperatorLessThan Operator = "less_than"

	// OperatorExists matches when the field resolves to a defined value.
	OperatorExists Operator = "exists"

	// OperatorNotExists matches when the field does not resolve.
	OperatorNotExists Operator = "not_exists"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorGreaterThan, OperatorLessThan, OperatorExists, OperatorNotExists:
		return true
	}
	return false
}

// TriggerImmediate is the trigger type for rules that enqueue one evaluation
// as soon as they are created in an active state.
const TriggerImmediate = "immediate"

// Condition is a single field comparison attached to a rule.
// Conditions are immutable once attached to a rule version; updates replace
// the whole condition list.
type Condition struct {
	// Field is a dot-separated path resolved against the trigger payload
	// first and the trigger context second (e.g. "contact.tags").
	Field string `yaml:"field" json:"field"`

	// Operator selects the comparison applied to the resolved value.
	Operator Operator `yaml:"operator" json:"operator"`

	// Value is the expected value. Unused by exists/not_exists.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`
}

// Rule is a named, prioritized condition set bound to a trigger type.
// Rules are owned by the store; all mutation goes through its CRUD API.
type Rule struct {
	// ID uniquely identifies the rule.
	ID string `yaml:"id" json:"id"`

	// Name is a human-readable label.
	Name string `yaml:"name" json:"name"`

	// Conditions must all hold for the rule to match (AND semantics).
	// An empty list always matches.
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	// TriggerType is the event kind this rule listens for
	// (e.g. "message:inbound", "contact:created", "immediate").
	TriggerType string `yaml:"trigger_type" json:"trigger_type"`

	// Priority orders execution within a batch; higher runs first.
	Priority int `yaml:"priority" json:"priority"`

	// IsActive gates the rule. Inactive rules never produce queue items.
	IsActive bool `yaml:"is_active" json:"is_active"`

	// ExecutionCount is the number of successful executions.
	ExecutionCount int64 `yaml:"execution_count,omitempty" json:"execution_count"`

	// LastExecutedAt is the time of the last successful execution.
	LastExecutedAt time.Time `yaml:"last_executed_at,omitempty" json:"last_executed_at"`

	// CreatedAt and UpdatedAt track store-level lifecycle for persistence.
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at"`
}

// Clone returns a deep copy of the rule. The store hands out clones so that
// an in-progress dispatch never observes a half-updated rule.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	dup := *r
	if r.Conditions != nil {
		dup.Conditions = make([]Condition, len(r.Conditions))
		copy(dup.Conditions, r.Conditions)
	}
	return &dup
}

// Validate checks structural invariants of the rule.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Message: "id cannot be empty"}
	}
	if r.Name == "" {
		return &ValidationError{RuleID: r.ID, Field: "name", Message: "name cannot be empty"}
	}
	if r.TriggerType == "" {
		return &ValidationError{RuleID: r.ID, Field: "trigger_type", Message: "trigger type cannot be empty"}
	}
	for i, c := range r.Conditions {
		if c.Field == "" {
			return &ValidationError{RuleID: r.ID, Field: "conditions", Message: "condition field cannot be empty", Index: i}
		}
		if !c.Operator.Valid() {
			return &ValidationError{RuleID: r.ID, Field: "conditions", Message: "unknown operator " + string(c.Operator), Index: i}
		}
	}
	return nil
}

// Patch is a partial rule update. Nil fields are left unchanged.
type Patch struct {
	Name        *string      `yaml:"name,omitempty" json:"name,omitempty"`
	Conditions  *[]Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	TriggerType *string      `yaml:"trigger_type,omitempty" json:"trigger_type,omitempty"`
	Priority    *int         `yaml:"priority,omitempty" json:"priority,omitempty"`
	IsActive    *bool        `yaml:"is_active,omitempty" json:"is_active,omitempty"`
}

// Apply copies the non-nil patch fields onto the rule.
func (p *Patch) Apply(r *Rule) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Conditions != nil {
		conds := make([]Condition, len(*p.Conditions))
		copy(conds, *p.Conditions)
		r.Conditions = conds
	}
	if p.TriggerType != nil {
		r.TriggerType = *p.TriggerType
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
}
