package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"relay-hq/triton/pkg/automation/rule"
	"relay-hq/triton/pkg/bus"
)

// Hooks are optional callbacks the store invokes on rule mutations.
// They let collaborators react without the store importing them.
type Hooks struct {
	// OnMutate is called with the rule id after any create, update or
	// delete, once the registry reflects the change. Used to invalidate
	// per-rule caches.
	OnMutate func(ruleID string)

	// OnImmediate is called when a rule with the immediate trigger type
	// is created or reactivated, with a clone of the rule.
	OnImmediate func(r *rule.Rule)
}

// Store owns the rule set. It keeps the authoritative in-memory registry,
// mirrors mutations to the persistence backend, and emits rule lifecycle
// events on the bus. All mutations are serialized through the registry.
type Store struct {
	registry *Registry
	backend  Backend
	bus      *bus.Bus
	hooks    Hooks
	logger   *slog.Logger
	seedPath string
}

// Option configures a Store.
type Option func(*Store)

// WithBackend sets the persistence backend. Default: in-memory.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithBus sets the event bus for rule lifecycle events.
func WithBus(b *bus.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithHooks sets the mutation hooks.
func WithHooks(h Hooks) Option {
	return func(s *Store) { s.hooks = h }
}

// WithSeedFile sets a YAML rules file loaded on Load and on hot reload.
func WithSeedFile(path string) Option {
	return func(s *Store) { s.seedPath = path }
}

// New creates a rule store.
func New(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		registry: NewRegistry(),
		backend:  NewMemoryBackend(),
		logger:   logger.With("component", "automation.store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the read side for the dispatcher and schedulers.
func (s *Store) Registry() *Registry {
	return s.registry
}

// SetHooks installs the mutation hooks. Called by the agent during wiring,
// before any mutation traffic.
func (s *Store) SetHooks(h Hooks) {
	s.hooks = h
}

// Load populates the registry from the backend, then overlays the seed
// file if one is configured. Any failure is a LoadError, the one error
// class callers must treat as fatal.
func (s *Store) Load(ctx context.Context) error {
	rules, err := s.backend.LoadRules(ctx)
	if err != nil {
		return &LoadError{Source: "backend", Cause: err}
	}

	if s.seedPath != "" {
		seeded, err := LoadRulesFile(s.seedPath)
		if err != nil {
			return &LoadError{Source: s.seedPath, Cause: err}
		}

		// Seed rules win over persisted rules with the same id.
		byID := make(map[string]*rule.Rule, len(rules)+len(seeded))
		for _, r := range rules {
			byID[r.ID] = r
		}
		for _, r := range seeded {
			byID[r.ID] = r
		}
		rules = rules[:0]
		for _, r := range byID {
			rules = append(rules, r)
		}
	}

	s.registry.Replace(rules)

	s.logger.Info("Rule set loaded",
		"count", len(rules),
		"version", s.registry.Version(),
	)
	return nil
}

// Reload re-reads the seed file and atomically replaces the registry
// contents. Backend-persisted rules not present in the file are kept.
// On any error the previous rule set stays installed.
func (s *Store) Reload(ctx context.Context) error {
	if s.seedPath == "" {
		return fmt.Errorf("no rules file configured")
	}

	if err := s.Load(ctx); err != nil {
		s.logger.Warn("Rules reload failed, keeping previous rule set",
			"error", err,
		)
		return err
	}
	return nil
}

// Create validates and installs a new rule. A missing id gets a generated
// UUID. Returns a clone of the stored rule.
func (s *Store) Create(ctx context.Context, spec rule.Rule) (*rule.Rule, error) {
	r := spec.Clone()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.ExecutionCount = 0
	r.LastExecutedAt = time.Time{}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	if err := s.backend.SaveRule(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to persist rule: %w", err)
	}
	s.registry.Put(r)

	s.logger.Info("Rule created",
		"rule_id", r.ID,
		"name", r.Name,
		"trigger_type", r.TriggerType,
	)

	s.publish(bus.RuleCreated{Rule: r.Clone()})
	s.mutated(r.ID)
	s.maybeImmediate(r)

	return r.Clone(), nil
}

// Update applies a partial patch to an existing rule.
func (s *Store) Update(ctx context.Context, id string, patch rule.Patch) (*rule.Rule, error) {
	current, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	wasActive := current.IsActive
	patch.Apply(current)
	current.UpdatedAt = time.Now()

	if err := current.Validate(); err != nil {
		return nil, err
	}

	if err := s.backend.SaveRule(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to persist rule: %w", err)
	}
	s.registry.Put(current)

	s.logger.Info("Rule updated", "rule_id", id)

	s.publish(bus.RuleUpdated{Rule: current.Clone()})
	s.mutated(id)
	if !wasActive && current.IsActive {
		s.maybeImmediate(current)
	}

	return current.Clone(), nil
}

// Delete removes a rule. Unknown ids return ErrRuleNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	if err := s.backend.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	s.registry.Remove(id)

	s.logger.Info("Rule deleted", "rule_id", id)

	s.publish(bus.RuleDeleted{RuleID: id})
	s.mutated(id)
	return nil
}

// Get retrieves a clone of a rule by id.
func (s *Store) Get(id string) (*rule.Rule, error) {
	r, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return r, nil
}

// ListActive returns active rules in dispatch order.
func (s *Store) ListActive() []*rule.Rule {
	return s.registry.ListActive()
}

// All returns every rule.
func (s *Store) All() []*rule.Rule {
	return s.registry.All()
}

// RecordExecution bumps a rule's execution counter and last-executed
// timestamp after a successful action. Counter drift on a missing rule is
// tolerated: the rule may have been deleted mid-flight.
func (s *Store) RecordExecution(ctx context.Context, id string, at time.Time) {
	r, ok := s.registry.Get(id)
	if !ok {
		return
	}

	r.ExecutionCount++
	r.LastExecutedAt = at

	if err := s.backend.SaveRule(ctx, r); err != nil {
		s.logger.Warn("Failed to persist execution counters",
			"rule_id", id,
			"error", err,
		)
	}
	s.registry.Put(r)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) publish(ev bus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Store) mutated(id string) {
	if s.hooks.OnMutate != nil {
		s.hooks.OnMutate(id)
	}
}

func (s *Store) maybeImmediate(r *rule.Rule) {
	if s.hooks.OnImmediate != nil && r.IsActive && r.TriggerType == rule.TriggerImmediate {
		s.hooks.OnImmediate(r.Clone())
	}
}
