package snapshot

import (
	"context"
	"errors"
)

// ErrNotFound indicates no snapshot has been saved yet. Callers treat it
// as a cold start, not a failure.
var ErrNotFound = errors.New("snapshot not found")

// Backend stores the agent's operational snapshot as an opaque blob.
// The agent owns the encoding; backends never inspect it.
type Backend interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, data []byte) error

	// Load returns the most recent snapshot, or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Close releases backend resources.
	Close() error
}
