package bus

import (
	"relay-hq/triton/pkg/automation/rule"
)

// Command is the tagged union of inbound requests the agent consumes from
// its collaborators (contact services, message services, the admin API).
type Command interface {
	CommandName() string
}

// TriggerFire dispatches a trigger event against the active rule set.
type TriggerFire struct {
	TriggerType string
	Data        map[string]any
	Context     map[string]any
}

// CommandName returns the command name.
func (TriggerFire) CommandName() string { return "trigger.fire" }

// RuleCreate creates a rule from a spec.
type RuleCreate struct {
	Spec rule.Rule
}

// CommandName returns the command name.
func (RuleCreate) CommandName() string { return "rule.create" }

// RuleUpdate applies a partial update to an existing rule.
type RuleUpdate struct {
	ID    string
	Patch rule.Patch
}

// CommandName returns the command name.
func (RuleUpdate) CommandName() string { return "rule.update" }

// RuleDelete removes a rule, its performance record and any cached data.
type RuleDelete struct {
	ID string
}

// CommandName returns the command name.
func (RuleDelete) CommandName() string { return "rule.delete" }

// RuleExecute requests ad-hoc execution of one rule for one contact,
// bypassing trigger matching.
type RuleExecute struct {
	RuleID    string
	ContactID string
	Context   map[string]any
}

// CommandName returns the command name.
func (RuleExecute) CommandName() string { return "rule.execute" }

// WorkflowStart begins tracking a workflow for a contact.
type WorkflowStart struct {
	WorkflowID string
	ContactID  string
	Context    map[string]any
}

// CommandName returns the command name.
func (WorkflowStart) CommandName() string { return "workflow.start" }

// WorkflowComplete marks a tracked workflow terminal.
type WorkflowComplete struct {
	WorkflowID string
	Success    bool
	Result     any
}

// CommandName returns the command name.
func (WorkflowComplete) CommandName() string { return "workflow.complete" }
