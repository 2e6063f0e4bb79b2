package snapshot

import (
	"context"
	"sync"
)

// MemoryBackend keeps the snapshot in process memory. Restarts lose it,
// which is acceptable: a snapshot is an optimization, never required for
// correctness.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryBackend creates an empty in-memory snapshot backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Save replaces the stored snapshot.
func (m *MemoryBackend) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append([]byte(nil), data...)
	return nil
}

// Load returns the stored snapshot.
func (m *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
