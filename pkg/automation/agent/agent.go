package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"relay-hq/triton/pkg/automation/dispatch"
	"relay-hq/triton/pkg/automation/monitor"
	"relay-hq/triton/pkg/automation/queue"
	"relay-hq/triton/pkg/automation/rule"
	"relay-hq/triton/pkg/automation/scheduler"
	"relay-hq/triton/pkg/automation/snapshot"
	"relay-hq/triton/pkg/automation/store"
	"relay-hq/triton/pkg/automation/workflow"
	"relay-hq/triton/pkg/bus"
)

// OptimizationConfig configures the periodic optimization pass.
type OptimizationConfig struct {
	// Schedule is a cron expression (supports @every syntax).
	// Default: "@every 5m"
	Schedule string `yaml:"schedule"`

	// Thresholds for system-wide anomaly detection.
	Thresholds monitor.Thresholds `yaml:",inline"`
}

// DefaultOptimizationConfig returns the default optimization configuration.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		Schedule:   "@every 5m",
		Thresholds: monitor.DefaultThresholds(),
	}
}

// Config configures the automation agent.
type Config struct {
	Evaluation   scheduler.EvaluationConfig `yaml:"evaluation"`
	Execution    scheduler.ExecutionConfig  `yaml:"execution"`
	Retry        queue.BackoffPolicy        `yaml:"retry"`
	Optimization OptimizationConfig         `yaml:"optimization"`
	Workflow     workflow.Config            `yaml:"workflow"`
	Monitor      monitor.Config             `yaml:"monitor"`

	// SnapshotInterval is how often operational state is persisted.
	// Zero disables periodic snapshots (a final one is still taken on
	// Stop when a snapshot backend is configured). Default: 1m
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	// CommandBuffer sizes the inbound command channel. Default: 256
	CommandBuffer int `yaml:"command_buffer"`
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() Config {
	return Config{
		Evaluation:       scheduler.DefaultEvaluationConfig(),
		Execution:        scheduler.DefaultExecutionConfig(),
		Retry:            queue.DefaultBackoffPolicy(),
		Optimization:     DefaultOptimizationConfig(),
		Workflow:         workflow.DefaultConfig(),
		Monitor:          monitor.DefaultConfig(),
		SnapshotInterval: time.Minute,
		CommandBuffer:    256,
	}
}

// Deps are the collaborators the agent is wired with. Store, Contacts and
// Actions are required; the rest are optional.
type Deps struct {
	Store     *store.Store
	Contacts  scheduler.ContactSource
	Actions   scheduler.ActionRunner
	Bus       *bus.Bus
	Snapshots snapshot.Backend
	Watcher   *store.FileWatcher
	Recorder  dispatch.Recorder
	Telemetry SchedulerTelemetry
	Logger    *slog.Logger
}

// SchedulerTelemetry receives queue and tick telemetry from the agent's
// tick wrappers. Implemented by the metrics collector; nil disables it.
type SchedulerTelemetry interface {
	SetQueueDepth(queue string, depth int)
	ObserveTick(scheduler string, duration time.Duration)
	RecordSkippedTick(scheduler string)
	AddExecutions(outcome string, n int)
}

// Agent is the automation runtime: it owns the queues, the dispatcher,
// both schedulers, the performance monitor and the workflow tracker, and
// drives them with cron ticks and an inbound command loop.
type Agent struct {
	config Config
	deps   Deps
	logger *slog.Logger

	evalQueue *queue.Queue
	execQueue *queue.Queue

	dispatcher *dispatch.Dispatcher
	evalSched  *scheduler.EvaluationScheduler
	execSched  *scheduler.ExecutionScheduler
	monitor    *monitor.Monitor
	tracker    *workflow.Tracker

	commands chan bus.Command

	// Last counter values shipped to telemetry, for delta reporting.
	telemetryMu   sync.Mutex
	sentExecuted  int64
	sentFailed    int64
	sentDiscarded int64
	sentDropped   int64

	mu          sync.Mutex
	cron        *cron.Cron
	cancel      context.CancelFunc
	done        chan struct{}
	initialized bool
	running     bool
}

// New creates an agent. It wires the components but starts nothing;
// call Initialize then Start.
func New(config Config, deps Deps) (*Agent, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Contacts == nil {
		return nil, fmt.Errorf("contact source is required")
	}
	if deps.Actions == nil {
		return nil, fmt.Errorf("action runner is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if config.CommandBuffer <= 0 {
		config.CommandBuffer = 256
	}
	if config.Optimization.Schedule == "" {
		config.Optimization.Schedule = "@every 5m"
	}

	logger := deps.Logger.With("component", "automation.agent")

	a := &Agent{
		config:    config,
		deps:      deps,
		logger:    logger,
		evalQueue: queue.New(),
		execQueue: queue.New(),
		monitor:   monitor.New(config.Monitor, deps.Logger),
		tracker:   workflow.New(config.Workflow, deps.Bus, deps.Logger),
		commands:  make(chan bus.Command, config.CommandBuffer),
	}

	a.dispatcher = dispatch.New(deps.Store.Registry(), a.execQueue, deps.Recorder, deps.Logger)
	a.evalSched = scheduler.NewEvaluationScheduler(config.Evaluation,
		a.evalQueue, a.execQueue, deps.Store.Registry(), a.dispatcher, deps.Logger)
	a.execSched = scheduler.NewExecutionScheduler(config.Execution,
		a.execQueue, deps.Store.Registry(), deps.Contacts, deps.Actions,
		config.Retry, deps.Store, a.monitor, deps.Bus, deps.Logger)

	deps.Store.SetHooks(store.Hooks{
		OnMutate: func(ruleID string) {
			a.monitor.Invalidate(ruleID)
		},
		OnImmediate: func(r *rule.Rule) {
			a.enqueueEvaluation(r, "", nil)
		},
	})

	return a, nil
}

// Initialize loads the rule set and restores the operational snapshot.
// A rule load failure is fatal: the agent refuses to initialize. A
// snapshot failure is logged and ignored; the agent cold-starts.
func (a *Agent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return fmt.Errorf("agent already initialized")
	}

	if err := a.deps.Store.Load(ctx); err != nil {
		var lerr *store.LoadError
		if errors.As(err, &lerr) {
			return fmt.Errorf("rule load failed, refusing to initialize: %w", err)
		}
		return err
	}

	if a.deps.Snapshots != nil {
		if err := a.restoreSnapshot(ctx); err != nil && !errors.Is(err, snapshot.ErrNotFound) {
			a.logger.Warn("snapshot restore failed, starting cold", "error", err)
		}
	}

	a.initialized = true
	a.logger.Info("agent initialized",
		"rules", a.deps.Store.Registry().Count(),
		"rules_version", a.deps.Store.Registry().Version(),
	)
	return nil
}

// Start begins the scheduler ticks, the optimization pass, the command
// loop, the optional rules file watcher and the periodic snapshot job.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return fmt.Errorf("agent not initialized")
	}
	if a.running {
		return fmt.Errorf("agent already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	a.cron = cron.New()

	if _, err := a.cron.AddFunc(everySpec(a.config.Evaluation.Interval), func() {
		a.tickEvaluation(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule evaluation tick: %w", err)
	}

	if _, err := a.cron.AddFunc(everySpec(a.config.Execution.Interval), func() {
		a.tickExecution(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule execution tick: %w", err)
	}

	if _, err := a.cron.AddFunc(a.config.Optimization.Schedule, func() {
		a.optimizationPass(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("invalid optimization schedule %q: %w",
			a.config.Optimization.Schedule, err)
	}

	if a.deps.Snapshots != nil && a.config.SnapshotInterval > 0 {
		if _, err := a.cron.AddFunc(everySpec(a.config.SnapshotInterval), func() {
			if err := a.saveSnapshot(runCtx); err != nil {
				a.logger.Warn("periodic snapshot failed", "error", err)
			}
		}); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule snapshots: %w", err)
		}
	}

	a.cron.Start()

	go a.serve(runCtx)

	if a.deps.Watcher != nil {
		go func() {
			if err := a.deps.Watcher.Watch(runCtx, func() error {
				return a.deps.Store.Reload(runCtx)
			}); err != nil {
				a.logger.Error("rules watcher exited", "error", err)
			}
		}()
	}

	a.running = true
	a.logger.Info("agent started",
		"evaluation_interval", a.config.Evaluation.Interval,
		"execution_interval", a.config.Execution.Interval,
		"optimization_schedule", a.config.Optimization.Schedule,
	)
	return nil
}

// Stop drains the agent: ticks stop, remaining queue items get a final
// execution pass bounded by the timeout, and a last snapshot is taken.
func (a *Agent) Stop(timeout time.Duration) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.logger.Info("agent stopping")

	// Stop cron and wait for in-flight jobs.
	stopCtx := a.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(timeout):
		a.logger.Warn("timed out waiting for running ticks")
	}

	// Stop the command loop.
	a.cancel()
	select {
	case <-a.done:
	case <-time.After(timeout):
		a.logger.Warn("timed out waiting for command loop")
	}

	// Drain: process what is still pending, bounded by the timeout.
	drainCtx, cancel := context.WithTimeout(context.Background(), timeout)
	a.drain(drainCtx)
	cancel()

	if a.deps.Snapshots != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.saveSnapshot(saveCtx); err != nil {
			a.logger.Warn("final snapshot failed", "error", err)
		}
		cancel()
	}

	a.evalQueue.Close()
	a.execQueue.Close()
	a.tracker.Close()

	a.logger.Info("agent stopped")
	return nil
}

// drain runs evaluation and execution passes until both queues are empty
// or the context expires. Items still waiting on retry timers are not
// drained; they would violate their backoff delay.
func (a *Agent) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.logger.Warn("drain timed out",
				"evaluation_pending", a.evalQueue.Len(),
				"execution_pending", a.execQueue.Len(),
			)
			return
		default:
		}

		if a.evalQueue.Len() == 0 && a.execQueue.Len() == 0 {
			return
		}
		a.evalSched.Tick(ctx)
		a.execSched.Tick(ctx)
	}
}

// Dispatch routes a trigger event through the matching pathway. Returns
// the number of matched rules.
func (a *Agent) Dispatch(ctx context.Context, triggerType string, data, trigCtx map[string]any) int {
	return a.dispatcher.Dispatch(ctx, triggerType, data, trigCtx)
}

// Monitor exposes the performance monitor read side.
func (a *Agent) Monitor() *monitor.Monitor {
	return a.monitor
}

// Tracker exposes the workflow tracker.
func (a *Agent) Tracker() *workflow.Tracker {
	return a.tracker
}

// QueueDepth returns the combined pending item count of both queues.
func (a *Agent) QueueDepth() int {
	return a.evalQueue.Len() + a.execQueue.Len()
}

// tickEvaluation runs one evaluation tick and reports tick telemetry.
func (a *Agent) tickEvaluation(ctx context.Context) {
	start := time.Now()
	_, ran := a.evalSched.Tick(ctx)

	if a.deps.Telemetry == nil {
		return
	}
	if !ran {
		a.deps.Telemetry.RecordSkippedTick("evaluation")
		return
	}
	a.deps.Telemetry.ObserveTick("evaluation", time.Since(start))
	a.deps.Telemetry.SetQueueDepth("evaluation", a.evalQueue.Len())
	a.deps.Telemetry.SetQueueDepth("execution", a.execQueue.Len())
}

// tickExecution runs one execution tick and reports tick telemetry plus
// execution outcome deltas since the last report.
func (a *Agent) tickExecution(ctx context.Context) {
	start := time.Now()
	_, ran := a.execSched.Tick(ctx)

	if a.deps.Telemetry == nil {
		return
	}
	if !ran {
		a.deps.Telemetry.RecordSkippedTick("execution")
		return
	}
	a.deps.Telemetry.ObserveTick("execution", time.Since(start))
	a.deps.Telemetry.SetQueueDepth("execution", a.execQueue.Len())

	a.telemetryMu.Lock()
	executed, failed := a.execSched.Executed(), a.execSched.Failed()
	discarded, dropped := a.execSched.Discarded(), a.execSched.Dropped()
	a.deps.Telemetry.AddExecutions("success", int(executed-a.sentExecuted))
	a.deps.Telemetry.AddExecutions("failure", int(failed-a.sentFailed))
	a.deps.Telemetry.AddExecutions("discarded", int(discarded-a.sentDiscarded))
	a.deps.Telemetry.AddExecutions("dropped", int(dropped-a.sentDropped))
	a.sentExecuted, a.sentFailed = executed, failed
	a.sentDiscarded, a.sentDropped = discarded, dropped
	a.telemetryMu.Unlock()
}

// enqueueEvaluation adds one evaluation item for a rule, used for
// immediate-trigger rules and ad-hoc execution requests.
func (a *Agent) enqueueEvaluation(r *rule.Rule, contactID string, ctxData map[string]any) {
	a.evalQueue.Enqueue(&queue.Item{
		ID:        newItemID(),
		Kind:      queue.KindEvaluation,
		RuleID:    r.ID,
		ContactID: contactID,
		Context:   ctxData,
		Priority:  r.Priority,
	})
}

// optimizationPass runs the periodic monitor sweep: review candidates,
// a refreshed order hint, anomaly checks, and a metrics event.
func (a *Agent) optimizationPass(ctx context.Context) {
	start := time.Now()

	priorities := make(map[string]int)
	for _, r := range a.deps.Store.All() {
		if r.IsActive {
			priorities[r.ID] = r.Priority
		}
	}

	candidates := a.monitor.ReviewCandidates()
	for _, c := range candidates {
		a.logger.Info("rule flagged for review",
			"rule_id", c.RuleID,
			"success_rate", c.SuccessRate,
			"avg_duration_ms", c.AvgDurationMs,
			"reason", c.Reason,
		)
	}

	suggested := a.monitor.SuggestedOrder(priorities)

	tickDuration := a.evalSched.LastTickDuration()
	if d := a.execSched.LastTickDuration(); d > tickDuration {
		tickDuration = d
	}
	anomalies := a.monitor.DetectAnomalies(a.config.Optimization.Thresholds, monitor.SystemStats{
		QueueDepth:       a.QueueDepth(),
		LastTickDuration: tickDuration,
	})

	if len(anomalies) > 0 && a.deps.Bus != nil {
		out := make([]bus.Anomaly, len(anomalies))
		for i, an := range anomalies {
			out[i] = bus.Anomaly{
				Type:      an.Type,
				Value:     an.Value,
				Threshold: an.Threshold,
				Detail:    an.Detail,
			}
		}
		a.deps.Bus.Publish(bus.AnomalyDetected{Anomalies: out, At: time.Now()})
	}
	for _, an := range anomalies {
		a.logger.Warn("anomaly detected",
			"type", an.Type,
			"value", an.Value,
			"threshold", an.Threshold,
		)
	}

	if a.deps.Bus != nil {
		a.deps.Bus.Publish(bus.MetricsUpdated{
			Metrics: map[string]any{
				"matched":           a.dispatcher.Matched(),
				"skipped":           a.dispatcher.Skipped(),
				"executed":          a.execSched.Executed(),
				"failed":            a.execSched.Failed(),
				"discarded":         a.execSched.Discarded(),
				"review_candidates": len(candidates),
			},
			State: map[string]any{
				"queue_depth":     a.QueueDepth(),
				"rules_version":   a.deps.Store.Registry().Version(),
				"suggested_order": suggested,
				"workflows":       a.tracker.Aggregates(),
			},
			At: time.Now(),
		})
	}

	a.logger.Debug("optimization pass complete",
		"candidates", len(candidates),
		"anomalies", len(anomalies),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// everySpec renders an interval as a cron @every expression.
func everySpec(d time.Duration) string {
	if d <= 0 {
		d = 5 * time.Second
	}
	return "@every " + d.String()
}
