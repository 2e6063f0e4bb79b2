package dispatch

import (
	"fmt"

	"relay-hq/triton/pkg/automation/rule"
)

// ConditionError indicates a condition could not be evaluated (malformed
// field, unknown operator, or an uncoercible value). The dispatcher treats
// it as "condition false" and logs it; it never escapes Dispatch.
type ConditionError struct {
	RuleID   string
	Field    string
	Operator rule.Operator
	Message  string
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %s: condition %q %s: %s", e.RuleID, e.Field, e.Operator, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("condition %q %s: %s", e.Field, e.Operator, e.Message)
	}
	return fmt.Sprintf("condition %s: %s", e.Operator, e.Message)
}
