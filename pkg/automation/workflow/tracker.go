package workflow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"relay-hq/triton/pkg/bus"
)

// Status is a workflow lifecycle state.
type Status string

// Workflow states. Transitions are monotonic:
// pending -> running -> {completed, failed}.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Workflow is one tracked workflow run.
type Workflow struct {
	ID         string         `json:"id"`
	ContactID  string         `json:"contact_id"`
	Context    map[string]any `json:"context,omitempty"`
	Status     Status         `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Result     any            `json:"result,omitempty"`
}

// Aggregates are rolling statistics over every completed workflow since
// the tracker started (eviction does not reset them).
type Aggregates struct {
	Running       int     `json:"running"`
	Completed     int64   `json:"completed"`
	Failed        int64   `json:"failed"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// Config configures the workflow tracker.
type Config struct {
	// Retention is how long terminal workflows stay queryable before
	// eviction. Default: 5m
	Retention time.Duration `yaml:"retention"`
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{Retention: 5 * time.Minute}
}

// Tracker tracks workflow runs. Terminal records are evicted lazily by a
// per-record timer after the retention window; completion never blocks on
// eviction.
type Tracker struct {
	config Config
	bus    *bus.Bus
	logger *slog.Logger

	mu        sync.Mutex
	workflows map[string]*Workflow
	timers    map[string]*time.Timer
	closed    bool

	completed     int64
	failed        int64
	totalDuration float64
}

// New creates a workflow tracker.
func New(config Config, b *bus.Bus, logger *slog.Logger) *Tracker {
	if config.Retention <= 0 {
		config.Retention = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		config:    config,
		bus:       b,
		logger:    logger.With("component", "automation.workflow"),
		workflows: make(map[string]*Workflow),
		timers:    make(map[string]*time.Timer),
	}
}

// Start registers a workflow in the running state. Starting an id that is
// already tracked is rejected.
func (t *Tracker) Start(id, contactID string, ctxData map[string]any) (*Workflow, error) {
	if id == "" {
		return nil, fmt.Errorf("workflow id cannot be empty")
	}

	t.mu.Lock()
	if _, exists := t.workflows[id]; exists {
		t.mu.Unlock()
		return nil, fmt.Errorf("workflow %s already tracked", id)
	}

	w := &Workflow{
		ID:        id,
		ContactID: contactID,
		Context:   ctxData,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	t.workflows[id] = w
	snapshot := *w
	t.mu.Unlock()

	t.logger.Debug("Workflow started", "workflow_id", id, "contact_id", contactID)

	if t.bus != nil {
		t.bus.Publish(bus.WorkflowStarted{WorkflowID: id, ContactID: contactID})
	}
	return &snapshot, nil
}

// Complete moves a workflow to its terminal status, records its duration
// in the rolling aggregates, and schedules eviction after the retention
// window. Completing an unknown or already-terminal workflow is an error;
// terminal states are never left.
func (t *Tracker) Complete(id string, success bool, result any) (*Workflow, error) {
	t.mu.Lock()
	w, ok := t.workflows[id]
	if !ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("workflow %s not tracked", id)
	}
	if w.Status.Terminal() {
		t.mu.Unlock()
		return nil, fmt.Errorf("workflow %s already %s", id, w.Status)
	}

	now := time.Now()
	if success {
		w.Status = StatusCompleted
		t.completed++
	} else {
		w.Status = StatusFailed
		t.failed++
	}
	w.EndedAt = now
	w.DurationMs = now.Sub(w.StartedAt).Milliseconds()
	w.Result = result
	t.totalDuration += float64(w.DurationMs)

	if !t.closed {
		t.timers[id] = time.AfterFunc(t.config.Retention, func() { t.evict(id) })
	}

	snapshot := *w
	duration := now.Sub(w.StartedAt)
	contactID := w.ContactID
	t.mu.Unlock()

	t.logger.Debug("Workflow finished",
		"workflow_id", id,
		"success", success,
		"duration_ms", snapshot.DurationMs,
	)

	if t.bus != nil {
		t.bus.Publish(bus.WorkflowFinished{
			WorkflowID: id,
			ContactID:  contactID,
			Success:    success,
			Duration:   duration,
			Result:     result,
		})
	}
	return &snapshot, nil
}

// Get returns a copy of a tracked workflow.
func (t *Tracker) Get(id string) (*Workflow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.workflows[id]
	if !ok {
		return nil, false
	}
	snapshot := *w
	return &snapshot, true
}

// ImportAggregates seeds the rolling counters from a persisted snapshot.
// Only the terminal-workflow totals carry over; running workflows are not
// restorable and agg.Running is ignored. Importing onto a tracker that has
// already completed workflows is rejected so restored totals are never
// double-counted.
func (t *Tracker) ImportAggregates(agg Aggregates) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed != 0 || t.failed != 0 {
		return fmt.Errorf("tracker already has %d terminal workflows, refusing import",
			t.completed+t.failed)
	}
	if agg.Completed < 0 || agg.Failed < 0 {
		return fmt.Errorf("negative workflow totals in snapshot")
	}

	t.completed = agg.Completed
	t.failed = agg.Failed
	t.totalDuration = agg.AvgDurationMs * float64(agg.Completed+agg.Failed)
	return nil
}

// Aggregates returns the rolling statistics.
func (t *Tracker) Aggregates() Aggregates {
	t.mu.Lock()
	defer t.mu.Unlock()

	agg := Aggregates{
		Completed: t.completed,
		Failed:    t.failed,
	}
	for _, w := range t.workflows {
		if !w.Status.Terminal() {
			agg.Running++
		}
	}
	if total := t.completed + t.failed; total > 0 {
		agg.SuccessRate = float64(t.completed) / float64(total)
		agg.AvgDurationMs = t.totalDuration / float64(total)
	}
	return agg
}

// Close stops all eviction timers. Tracked records stay readable.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *Tracker) evict(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.workflows, id)
	delete(t.timers, id)
}
