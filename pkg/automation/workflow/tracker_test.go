package workflow

import (
	"math"
	"testing"
	"time"

	"relay-hq/triton/pkg/bus"
)

func TestStartAndComplete(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	started, err := tr.Start("wf-1", "contact-1", map[string]any{"source": "test"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if started.Status != StatusRunning {
		t.Errorf("Status = %s, want running", started.Status)
	}

	done, err := tr.Complete("wf-1", true, "ok")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", done.Status)
	}
	if done.DurationMs < 0 {
		t.Errorf("DurationMs = %d, want >= 0", done.DurationMs)
	}
	if done.EndedAt.IsZero() {
		t.Error("EndedAt not set")
	}
}

func TestStartDuplicate(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	if _, err := tr.Start("wf-1", "c", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := tr.Start("wf-1", "c", nil); err == nil {
		t.Error("second Start() succeeded, want error")
	}
}

func TestCompleteUnknown(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	if _, err := tr.Complete("missing", true, nil); err == nil {
		t.Error("Complete(missing) succeeded, want error")
	}
}

func TestTerminalStateIsFinal(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	if _, err := tr.Start("wf-1", "c", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := tr.Complete("wf-1", false, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// A failed workflow cannot be completed again, in either direction.
	if _, err := tr.Complete("wf-1", true, nil); err == nil {
		t.Error("Complete() on terminal workflow succeeded, want error")
	}

	got, ok := tr.Get("wf-1")
	if !ok {
		t.Fatal("Get(wf-1) not found")
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
}

func TestAggregates(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	for _, run := range []struct {
		id      string
		success bool
	}{
		{"wf-1", true},
		{"wf-2", true},
		{"wf-3", false},
	} {
		if _, err := tr.Start(run.id, "c", nil); err != nil {
			t.Fatalf("Start(%s) error = %v", run.id, err)
		}
		if _, err := tr.Complete(run.id, run.success, nil); err != nil {
			t.Fatalf("Complete(%s) error = %v", run.id, err)
		}
	}
	if _, err := tr.Start("wf-4", "c", nil); err != nil {
		t.Fatalf("Start(wf-4) error = %v", err)
	}

	agg := tr.Aggregates()
	if agg.Running != 1 {
		t.Errorf("Running = %d, want 1", agg.Running)
	}
	if agg.Completed != 2 || agg.Failed != 1 {
		t.Errorf("Completed/Failed = %d/%d, want 2/1", agg.Completed, agg.Failed)
	}
	if want := 2.0 / 3.0; math.Abs(agg.SuccessRate-want) > 1e-9 {
		t.Errorf("SuccessRate = %v, want %v", agg.SuccessRate, want)
	}
}

func TestImportAggregates(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	if err := tr.ImportAggregates(Aggregates{
		Completed:     3,
		Failed:        1,
		AvgDurationMs: 50,
	}); err != nil {
		t.Fatalf("ImportAggregates() error = %v", err)
	}

	agg := tr.Aggregates()
	if agg.Completed != 3 || agg.Failed != 1 {
		t.Errorf("Completed/Failed = %d/%d, want 3/1", agg.Completed, agg.Failed)
	}
	if math.Abs(agg.SuccessRate-0.75) > 1e-9 {
		t.Errorf("SuccessRate = %v, want 0.75", agg.SuccessRate)
	}
	if math.Abs(agg.AvgDurationMs-50) > 1e-9 {
		t.Errorf("AvgDurationMs = %v, want 50", agg.AvgDurationMs)
	}

	// New completions keep accumulating on top of the imported totals.
	if _, err := tr.Start("wf-1", "c", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Complete("wf-1", true, nil); err != nil {
		t.Fatal(err)
	}
	if agg := tr.Aggregates(); agg.Completed != 4 {
		t.Errorf("Completed = %d after import + completion, want 4", agg.Completed)
	}
}

func TestImportAggregatesRejected(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil)
	defer tr.Close()

	if _, err := tr.Start("wf-1", "c", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Complete("wf-1", true, nil); err != nil {
		t.Fatal(err)
	}

	// A tracker that already counted terminal workflows refuses the seed.
	if err := tr.ImportAggregates(Aggregates{Completed: 5}); err == nil {
		t.Error("ImportAggregates() on non-empty tracker succeeded, want error")
	}
	if agg := tr.Aggregates(); agg.Completed != 1 {
		t.Errorf("Completed = %d, want 1 (import must not apply)", agg.Completed)
	}

	fresh := New(DefaultConfig(), nil, nil)
	defer fresh.Close()
	if err := fresh.ImportAggregates(Aggregates{Completed: -1}); err == nil {
		t.Error("ImportAggregates() with negative totals succeeded, want error")
	}
}

func TestEvictionAfterRetention(t *testing.T) {
	tr := New(Config{Retention: 20 * time.Millisecond}, nil, nil)
	defer tr.Close()

	if _, err := tr.Start("wf-1", "c", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := tr.Complete("wf-1", true, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := tr.Get("wf-1"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("workflow not evicted after retention window")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Aggregates survive eviction.
	if agg := tr.Aggregates(); agg.Completed != 1 {
		t.Errorf("Completed = %d after eviction, want 1", agg.Completed)
	}
}

func TestRunningWorkflowNotEvicted(t *testing.T) {
	tr := New(Config{Retention: 10 * time.Millisecond}, nil, nil)
	defer tr.Close()

	if _, err := tr.Start("wf-1", "c", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := tr.Get("wf-1"); !ok {
		t.Error("running workflow was evicted")
	}
}

func TestBusEvents(t *testing.T) {
	b := bus.New()
	defer b.Close()
	events := b.Subscribe()

	tr := New(DefaultConfig(), b, nil)
	defer tr.Close()

	if _, err := tr.Start("wf-1", "contact-9", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := tr.Complete("wf-1", true, "done"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	ev := <-events
	started, ok := ev.(bus.WorkflowStarted)
	if !ok {
		t.Fatalf("first event = %T, want bus.WorkflowStarted", ev)
	}
	if started.WorkflowID != "wf-1" || started.ContactID != "contact-9" {
		t.Errorf("started event = %+v", started)
	}

	ev = <-events
	finished, ok := ev.(bus.WorkflowFinished)
	if !ok {
		t.Fatalf("second event = %T, want bus.WorkflowFinished", ev)
	}
	if !finished.Success || finished.Result != "done" {
		t.Errorf("finished event = %+v", finished)
	}
}
