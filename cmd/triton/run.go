package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"relay-hq/triton/pkg/automation/agent"
	"relay-hq/triton/pkg/automation/monitor"
	"relay-hq/triton/pkg/automation/queue"
	"relay-hq/triton/pkg/automation/rule"
	"relay-hq/triton/pkg/automation/scheduler"
	"relay-hq/triton/pkg/automation/snapshot"
	"relay-hq/triton/pkg/automation/store"
	"relay-hq/triton/pkg/automation/workflow"
	"relay-hq/triton/pkg/bus"
	"relay-hq/triton/pkg/cli"
	"relay-hq/triton/pkg/config"
	"relay-hq/triton/pkg/telemetry/logging"
	"relay-hq/triton/pkg/telemetry/metrics"
)

const shutdownTimeout = 30 * time.Second

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Triton automation agent",
	Long: `Start the Triton automation agent with the specified configuration.

The agent loads the rule set, starts the evaluation and execution scheduler
ticks, the optimization pass, the command loop and (if configured) the rules
file watcher and metrics endpoint.

Examples:
  # Start with default config
  triton run

  # Start with custom config
  triton run --config /etc/triton/config.yaml

  # Validate config without starting the agent
  triton run --dry-run`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the agent")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Triton v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	// Event bus
	b := bus.New()
	defer b.Close()

	// Rule persistence backend
	var backend store.Backend
	switch cfg.Rules.Backend {
	case "sqlite":
		sqlBackend, err := store.NewSQLiteBackend(cfg.Rules.SQLitePath)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open rule store: %w", err))
		}
		defer sqlBackend.Close()
		backend = sqlBackend
	default:
		backend = store.NewMemoryBackend()
	}

	storeOpts := []store.Option{store.WithBackend(backend), store.WithBus(b)}
	if cfg.Rules.Path != "" {
		storeOpts = append(storeOpts, store.WithSeedFile(cfg.Rules.Path))
	}
	ruleStore := store.New(logger, storeOpts...)

	// Snapshot backend
	var snapshots snapshot.Backend
	if cfg.Snapshot.Enabled {
		switch cfg.Snapshot.Backend {
		case "sqlite":
			sqlSnapshots, err := snapshot.NewSQLiteBackend(cfg.Snapshot.SQLitePath)
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to open snapshot store: %w", err))
			}
			defer sqlSnapshots.Close()
			snapshots = sqlSnapshots
		default:
			snapshots = snapshot.NewMemoryBackend()
		}
	}

	// Rules file watcher
	var watcher *store.FileWatcher
	if cfg.Rules.Watch {
		watcher, err = store.NewFileWatcher(&store.FileWatcherConfig{Path: cfg.Rules.Path}, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create rules watcher: %w", err))
		}
		defer watcher.Stop()
	}

	// Metrics
	var (
		recorder   *metrics.RuleMetrics
		telemetry  *metrics.SchedulerMetrics
		metricsSrv *http.Server
	)
	if cfg.Telemetry.Metrics.Enabled {
		collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		recorder = collector.Rules()
		telemetry = collector.Schedulers()

		exporter := metrics.NewExporter(collector, logger)
		go exporter.Run(cmd.Context(), b.Subscribe())

		metricsSrv = collector.Server()
		go func() {
			slog.Info("metrics endpoint listening",
				"address", cfg.Telemetry.Metrics.ListenAddress,
				"path", cfg.Telemetry.Metrics.Path,
			)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	deps := agent.Deps{
		Store:     ruleStore,
		Contacts:  &contextContacts{},
		Actions:   &logActions{logger: logger},
		Bus:       b,
		Snapshots: snapshots,
		Watcher:   watcher,
		Logger:    logger,
	}
	if recorder != nil {
		deps.Recorder = recorder
	}
	if telemetry != nil {
		deps.Telemetry = telemetry
	}

	ag, err := agent.New(buildAgentConfig(cfg), deps)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, signals, stop := cli.ShutdownContext(context.Background())
	defer stop()

	if err := ag.Initialize(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Println("✓ Rules loaded")

	if err := ag.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println()
	fmt.Println("✓ Agent running")
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n",
			cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sig := <-signals
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)

	if err := ag.Stop(shutdownTimeout); err != nil {
		slog.Error("shutdown failed", "error", err)
		return cli.NewCommandError("run", err)
	}
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown failed", "error", err)
		}
		shutdownCancel()
	}

	fmt.Println("✓ Agent stopped")
	return nil
}

// buildAgentConfig maps the file configuration onto the agent's wiring
// configuration.
func buildAgentConfig(cfg *config.Config) agent.Config {
	return agent.Config{
		Evaluation: scheduler.EvaluationConfig{
			Interval:      cfg.Agent.Evaluation.Interval,
			BatchSize:     cfg.Agent.Evaluation.BatchSize,
			MaxConcurrent: cfg.Agent.Evaluation.MaxConcurrent,
		},
		Execution: scheduler.ExecutionConfig{
			Interval:      cfg.Agent.Execution.Interval,
			MaxParallel:   cfg.Agent.Execution.MaxParallel,
			ActionTimeout: cfg.Agent.Execution.ActionTimeout,
		},
		Retry: queue.BackoffPolicy{
			MaxAttempts: cfg.Agent.Retry.MaxAttempts,
			BaseDelay:   cfg.Agent.Retry.BaseDelay,
			Factor:      cfg.Agent.Retry.BackoffFactor,
			MaxDelay:    cfg.Agent.Retry.MaxDelay,
		},
		Optimization: agent.OptimizationConfig{
			Schedule: cfg.Agent.Optimization.Schedule,
			Thresholds: monitor.Thresholds{
				ErrorRate:    cfg.Agent.Optimization.ErrorRateThreshold,
				QueueDepth:   cfg.Agent.Optimization.QueueDepthThreshold,
				TickDuration: cfg.Agent.Optimization.TickDurationThreshold,
			},
		},
		Workflow: workflow.Config{Retention: cfg.Agent.Workflow.Retention},
		Monitor: monitor.Config{
			LowSuccessThreshold: cfg.Agent.Optimization.LowSuccessThreshold,
			SlowThresholdMs:     cfg.Agent.Optimization.SlowThresholdMs,
		},
		SnapshotInterval: cfg.Snapshot.Interval,
		CommandBuffer:    cfg.Agent.CommandBuffer,
	}
}

// contextContacts resolves contacts from the trigger context alone. Concrete
// contact directories plug in behind scheduler.ContactSource; the built-in
// source carries just the id so actions can address the contact.
type contextContacts struct{}

func (contextContacts) FetchContact(ctx context.Context, contactID string) (map[string]any, error) {
	return map[string]any{"id": contactID}, nil
}

// logActions runs rule actions by logging them. Concrete delivery channels
// plug in behind scheduler.ActionRunner.
type logActions struct {
	logger *slog.Logger
}

func (l *logActions) Execute(ctx context.Context, r *rule.Rule, contact, itemCtx map[string]any) error {
	l.logger.InfoContext(ctx, "rule action executed",
		"rule_id", r.ID,
		"rule_name", r.Name,
		"contact", contact["id"],
	)
	return nil
}
