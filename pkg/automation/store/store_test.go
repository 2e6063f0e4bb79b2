package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"relay-hq/triton/pkg/automation/rule"
	"relay-hq/triton/pkg/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStoreCreateAssignsID(t *testing.T) {
	s := New(testLogger())
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "welcome",
		TriggerType: "contact_created",
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("Create() did not assign an id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create() did not stamp timestamps")
	}

	got, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "welcome" {
		t.Errorf("Name = %q, want %q", got.Name, "welcome")
	}
}

func TestStoreCreateRejectsInvalid(t *testing.T) {
	s := New(testLogger())
	defer s.Close()

	_, err := s.Create(context.Background(), rule.Rule{
		Name:        "bad operator",
		TriggerType: "message_received",
		Conditions: []rule.Condition{
			{Field: "data.text", Operator: "looks_like"},
		},
	})
	if err == nil {
		t.Fatal("Create() with unknown operator succeeded, want error")
	}

	var verr *rule.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error type = %T, want *rule.ValidationError", err)
	}
}

func TestStoreUpdateAppliesPatch(t *testing.T) {
	s := New(testLogger())
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "original",
		TriggerType: "message_received",
		Priority:    1,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "renamed"
	priority := 9
	updated, err := s.Update(context.Background(), created.ID, rule.Patch{
		Name:     &name,
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "renamed" || updated.Priority != 9 {
		t.Errorf("updated = (%q, %d), want (renamed, 9)", updated.Name, updated.Priority)
	}
	if updated.TriggerType != "message_received" {
		t.Errorf("TriggerType changed by unrelated patch: %q", updated.TriggerType)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("UpdatedAt not advanced")
	}
}

func TestStoreUpdateUnknownRule(t *testing.T) {
	s := New(testLogger())
	defer s.Close()

	name := "x"
	_, err := s.Update(context.Background(), "missing", rule.Patch{Name: &name})
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := New(testLogger())
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "ephemeral",
		TriggerType: "message_received",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(created.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Get() after delete = %v, want ErrRuleNotFound", err)
	}
	if err := s.Delete(context.Background(), created.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("second Delete() = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreEmitsLifecycleEvents(t *testing.T) {
	b := bus.New()
	defer b.Close()
	events := b.Subscribe()

	s := New(testLogger(), WithBus(b))
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "observed",
		TriggerType: "message_received",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	ev := <-events
	cr, ok := ev.(bus.RuleCreated)
	if !ok {
		t.Fatalf("first event = %T, want bus.RuleCreated", ev)
	}
	if cr.Rule.ID != created.ID {
		t.Errorf("created event rule id = %s, want %s", cr.Rule.ID, created.ID)
	}

	ev = <-events
	del, ok := ev.(bus.RuleDeleted)
	if !ok {
		t.Fatalf("second event = %T, want bus.RuleDeleted", ev)
	}
	if del.RuleID != created.ID {
		t.Errorf("deleted event rule id = %s, want %s", del.RuleID, created.ID)
	}
}

func TestStoreImmediateHook(t *testing.T) {
	var fired []string
	s := New(testLogger(), WithHooks(Hooks{
		OnImmediate: func(r *rule.Rule) { fired = append(fired, r.ID) },
	}))
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "run now",
		TriggerType: rule.TriggerImmediate,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(fired) != 1 || fired[0] != created.ID {
		t.Fatalf("immediate hook fired = %v, want [%s]", fired, created.ID)
	}

	// Inactive immediate rules do not fire on create.
	if _, err := s.Create(context.Background(), rule.Rule{
		Name:        "parked",
		TriggerType: rule.TriggerImmediate,
		IsActive:    false,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(fired) != 1 {
		t.Errorf("inactive immediate rule fired the hook: %v", fired)
	}
}

func TestStoreImmediateHookOnReactivate(t *testing.T) {
	var fired int
	s := New(testLogger(), WithHooks(Hooks{
		OnImmediate: func(*rule.Rule) { fired++ },
	}))
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "toggled",
		TriggerType: rule.TriggerImmediate,
		IsActive:    false,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	active := true
	if _, err := s.Update(context.Background(), created.ID, rule.Patch{IsActive: &active}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if fired != 1 {
		t.Errorf("hook fired %d times after reactivation, want 1", fired)
	}

	// Updating an already-active rule must not re-fire.
	name := "still toggled"
	if _, err := s.Update(context.Background(), created.ID, rule.Patch{Name: &name}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if fired != 1 {
		t.Errorf("hook fired %d times after no-op update, want 1", fired)
	}
}

func TestStoreMutateHook(t *testing.T) {
	var mutated []string
	s := New(testLogger(), WithHooks(Hooks{
		OnMutate: func(id string) { mutated = append(mutated, id) },
	}))
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "tracked",
		TriggerType: "message_received",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(mutated) != 2 {
		t.Fatalf("OnMutate fired %d times, want 2", len(mutated))
	}
	for i, id := range mutated {
		if id != created.ID {
			t.Errorf("mutated[%d] = %s, want %s", i, id, created.ID)
		}
	}
}

func TestStoreRecordExecution(t *testing.T) {
	s := New(testLogger())
	defer s.Close()

	created, err := s.Create(context.Background(), rule.Rule{
		Name:        "counted",
		TriggerType: "message_received",
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	at := created.CreatedAt.Add(time.Second)
	s.RecordExecution(context.Background(), created.ID, at)
	s.RecordExecution(context.Background(), created.ID, at)

	got, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ExecutionCount != 2 {
		t.Errorf("ExecutionCount = %d, want 2", got.ExecutionCount)
	}
	if !got.LastExecutedAt.Equal(at) {
		t.Errorf("LastExecutedAt = %v, want %v", got.LastExecutedAt, at)
	}

	// Deleted rules are tolerated silently.
	s.RecordExecution(context.Background(), "gone", at)
}

func TestStoreLoadFromBackend(t *testing.T) {
	backend := NewMemoryBackend()
	if err := backend.SaveRule(context.Background(), testRule("persisted", 3, true)); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}

	s := New(testLogger(), WithBackend(backend))
	defer s.Close()

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.Get("persisted"); err != nil {
		t.Errorf("Get(persisted) after Load = %v", err)
	}
}

func TestStoreLoadBadSeedFileIsLoadError(t *testing.T) {
	s := New(testLogger(), WithSeedFile("/nonexistent/rules.yaml"))
	defer s.Close()

	err := s.Load(context.Background())
	if err == nil {
		t.Fatal("Load() with missing seed file succeeded, want error")
	}

	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Errorf("error type = %T, want *LoadError", err)
	}
}
