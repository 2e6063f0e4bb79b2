package store

import (
	"errors"
	"fmt"
)

// ErrRuleNotFound indicates a lookup or mutation referenced an unknown rule.
// Executions hitting this at dequeue time drop the item with a warning.
var ErrRuleNotFound = errors.New("rule not found")

// ErrRuleInactive indicates an operation targeted a deactivated rule.
// Ad-hoc execution requests fail with it instead of queueing work that
// would only be dropped.
var ErrRuleInactive = errors.New("rule inactive")

// LoadError indicates the rule set could not be loaded at initialization.
// This is the only error class that is fatal: the agent refuses to
// initialize on it.
type LoadError struct {
	Source string
	Cause  error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("rule store load failed from %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
