package store

import (
	"context"
	"fmt"
	"sync"

	"relay-hq/triton/pkg/automation/rule"
)

// MemoryBackend implements Backend with in-memory storage. This is the
// default backend; all rules are lost when the process exits, so it is
// meant for tests and for deployments that seed from a rules file.
type MemoryBackend struct {
	mu    sync.RWMutex
	rules map[string]*rule.Rule
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rules: make(map[string]*rule.Rule),
	}
}

// SaveRule inserts or updates one rule.
func (m *MemoryBackend) SaveRule(ctx context.Context, r *rule.Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if r.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[r.ID] = r.Clone()
	return nil
}

// DeleteRule removes one rule.
func (m *MemoryBackend) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rules, id)
	return nil
}

// LoadRules returns every stored rule.
func (m *MemoryBackend) LoadRules(ctx context.Context) ([]*rule.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]*rule.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r.Clone())
	}
	return rules, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
