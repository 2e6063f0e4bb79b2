package rule

import "fmt"

// ValidationError indicates a structurally invalid rule or condition.
type ValidationError struct {
	RuleID  string
	Field   string
	Message string
	Index   int
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %s: invalid %s: %s", e.RuleID, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
