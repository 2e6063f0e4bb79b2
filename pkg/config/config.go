package config

import "time"

// Config is the root configuration structure for Triton.
// It contains all configuration sections for the automation agent, the
// rule store, operational snapshots, and telemetry.
type Config struct {
	// Agent contains scheduler, retry, optimization and workflow settings.
	Agent AgentConfig `yaml:"agent"`

	// Rules contains rule store configuration: seed file, hot reload and
	// persistence backend.
	Rules RulesConfig `yaml:"rules"`

	// Snapshot contains operational snapshot configuration.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AgentConfig contains configuration for the automation agent.
type AgentConfig struct {
	Evaluation   EvaluationConfig   `yaml:"evaluation"`
	Execution    ExecutionConfig    `yaml:"execution"`
	Retry        RetryConfig        `yaml:"retry"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Workflow     WorkflowConfig     `yaml:"workflow"`

	// CommandBuffer sizes the inbound command channel.
	// Default: 256
	CommandBuffer int `yaml:"command_buffer"`
}

// EvaluationConfig configures the evaluation scheduler.
type EvaluationConfig struct {
	// Interval is the evaluation tick cadence.
	// Default: 5s
	Interval time.Duration `yaml:"interval"`

	// BatchSize is the maximum number of evaluation items pulled per tick.
	// Default: 50
	BatchSize int `yaml:"batch_size"`

	// MaxConcurrent bounds simultaneous evaluations within one tick.
	// Default: 10
	MaxConcurrent int `yaml:"max_concurrent"`
}

// ExecutionConfig configures the execution scheduler.
type ExecutionConfig struct {
	// Interval is the execution tick cadence.
	// Default: 5s
	Interval time.Duration `yaml:"interval"`

	// MaxParallel is the maximum number of items executed per tick.
	// Default: 10
	MaxParallel int `yaml:"max_parallel"`

	// ActionTimeout caps one rule action run. A hang becomes a retryable
	// failure instead of wedging the tick.
	// Default: 30s
	ActionTimeout time.Duration `yaml:"action_timeout"`
}

// RetryConfig configures the execution retry backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of execution attempts before an
	// item is discarded.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the delay after the first failure.
	// Default: 1s
	BaseDelay time.Duration `yaml:"base_delay"`

	// BackoffFactor is the exponential multiplier between attempts.
	// Default: 2.0
	BackoffFactor float64 `yaml:"backoff_factor"`

	// MaxDelay caps the computed delay.
	// Default: 5m
	MaxDelay time.Duration `yaml:"max_delay"`
}

// OptimizationConfig configures the periodic optimization pass.
type OptimizationConfig struct {
	// Schedule is a cron expression, @every syntax supported.
	// Default: "@every 5m"
	Schedule string `yaml:"schedule"`

	// LowSuccessThreshold flags rules whose success rate falls below it
	// as review candidates.
	// Default: 0.5
	LowSuccessThreshold float64 `yaml:"low_success_threshold"`

	// SlowThresholdMs flags rules whose average duration exceeds it.
	// Default: 5000
	SlowThresholdMs float64 `yaml:"slow_threshold_ms"`

	// ErrorRateThreshold is the tolerated system-wide execution failure
	// fraction before an anomaly is raised.
	// Default: 0.3
	ErrorRateThreshold float64 `yaml:"error_rate_threshold"`

	// QueueDepthThreshold is the tolerated total pending item count.
	// Default: 1000
	QueueDepthThreshold int `yaml:"queue_depth_threshold"`

	// TickDurationThreshold is the tolerated scheduler tick duration.
	// Default: 10s
	TickDurationThreshold time.Duration `yaml:"tick_duration_threshold"`
}

// WorkflowConfig configures the workflow tracker.
type WorkflowConfig struct {
	// Retention is how long terminal workflows stay queryable before
	// eviction.
	// Default: 5m
	Retention time.Duration `yaml:"retention"`
}

// RulesConfig contains rule store configuration.
type RulesConfig struct {
	// Path is an optional YAML rules seed file loaded at startup.
	Path string `yaml:"path"`

	// Watch enables hot reload of the seed file via filesystem events.
	// Default: false
	Watch bool `yaml:"watch"`

	// Backend selects the rule persistence backend: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file used when Backend is "sqlite".
	// Default: "triton-rules.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// SnapshotConfig contains operational snapshot configuration.
type SnapshotConfig struct {
	// Enabled turns snapshotting on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the snapshot backend: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file used when Backend is "sqlite".
	// Default: "triton-snapshot.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Interval is how often the snapshot is persisted. Zero disables the
	// periodic job; a final snapshot is still taken on shutdown.
	// Default: 1m
	Interval time.Duration `yaml:"interval"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the output encoding: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus namespace for all metrics.
	// Default: "triton"
	Namespace string `yaml:"namespace"`

	// ListenAddress is the address the metrics server binds.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path the metrics handler is mounted on.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
