package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"relay-hq/triton/pkg/automation/rule"
)

// Registry is the thread-safe in-memory rule index (id -> Rule).
// Readers get clones, and Replace swaps the whole set atomically, so an
// in-progress dispatch never observes a half-updated rule set.
type Registry struct {
	mu       sync.RWMutex
	rules    map[string]*rule.Rule
	version  string
	loadTime time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:    make(map[string]*rule.Rule),
		loadTime: time.Now(),
	}
}

// Put inserts or replaces a rule.
func (r *Registry) Put(ru *rule.Rule) {
	if ru == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[ru.ID] = ru.Clone()
	r.updateVersion()
}

// Remove deletes a rule by id. Returns false if the rule was not present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return false
	}

	delete(r.rules, id)
	r.updateVersion()
	return true
}

// Get retrieves a clone of a rule by id.
func (r *Registry) Get(id string) (*rule.Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ru, ok := r.rules[id]
	if !ok {
		return nil, false
	}
	return ru.Clone(), true
}

// ListActive returns clones of all active rules, sorted by priority
// descending with id as the deterministic tie-breaker.
func (r *Registry) ListActive() []*rule.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*rule.Rule, 0, len(r.rules))
	for _, ru := range r.rules {
		if ru.IsActive {
			active = append(active, ru.Clone())
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].ID < active[j].ID
	})

	return active
}

// All returns clones of every rule, sorted by id.
func (r *Registry) All() []*rule.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	all := make([]*rule.Rule, 0, len(ids))
	for _, id := range ids {
		all = append(all, r.rules[id].Clone())
	}
	return all
}

// Count returns the number of rules in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Replace atomically swaps the entire rule set. Used by the initial load
// and the hot-reload path.
func (r *Registry) Replace(rules []*rule.Rule) {
	next := make(map[string]*rule.Rule, len(rules))
	for _, ru := range rules {
		if ru != nil {
			next[ru.ID] = ru.Clone()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = next
	r.loadTime = time.Now()
	r.updateVersion()
}

// Version returns a hash identifying the current rule set. It changes
// whenever rules are added, removed or replaced.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// LoadTime returns when the rule set was last replaced.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadTime
}

// updateVersion recomputes the version hash. Caller holds the write lock.
func (r *Registry) updateVersion() {
	h := sha256.New()

	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ru := r.rules[id]
		h.Write([]byte(ru.ID))
		h.Write([]byte(ru.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	}

	r.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}
