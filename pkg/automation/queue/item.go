package queue

import (
	"time"
)

// Kind distinguishes the two queue types.
type Kind string

const (
	// KindEvaluation marks items pending condition evaluation.
	KindEvaluation Kind = "evaluation"

	// KindExecution marks items pending rule action execution.
	KindExecution Kind = "execution"
)

// Item is one unit of scheduled work. Items are transient: they are owned by
// whichever queue currently holds them and move between queues only by being
// re-enqueued, never shared.
type Item struct {
	// ID uniquely identifies the item across requeues.
	ID string

	// Kind is the queue type this item belongs to.
	Kind Kind

	// RuleID is the rule to evaluate or execute.
	RuleID string

	// ContactID is the contact the rule runs against. May be empty for
	// trigger-matched items without a contact binding.
	ContactID string

	// Context carries trigger payload and context data forward.
	Context map[string]any

	// Priority orders items within one batch pull; higher first.
	Priority int

	// EnqueuedAt is when the item first entered a queue.
	EnqueuedAt time.Time

	// Attempts counts execution attempts so far. The scheduler discards the
	// item and emits a permanent-failure event once Attempts reaches the
	// retry policy's MaxAttempts.
	Attempts int

	// seq is the arrival sequence number used as the stable tie-breaker.
	seq uint64
}
