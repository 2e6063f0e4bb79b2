package store

import (
	"context"

	"relay-hq/triton/pkg/automation/rule"
)

// Backend persists the rule set. Implementations must be safe for
// concurrent use; the store serializes writes but readers may race the
// snapshot loop.
type Backend interface {
	// SaveRule inserts or updates one rule.
	SaveRule(ctx context.Context, r *rule.Rule) error

	// DeleteRule removes one rule. No-op if the rule does not exist.
	DeleteRule(ctx context.Context, id string) error

	// LoadRules returns every persisted rule.
	LoadRules(ctx context.Context) ([]*rule.Rule, error)

	// Close releases backend resources.
	Close() error
}
