package config

import "time"

// Default values for configuration fields.
const (
	// Evaluation scheduler defaults
	DefaultEvaluationInterval      = 5 * time.Second
	DefaultEvaluationBatchSize     = 50
	DefaultEvaluationMaxConcurrent = 10

	// Execution scheduler defaults
	DefaultExecutionInterval    = 5 * time.Second
	DefaultExecutionMaxParallel = 10
	DefaultActionTimeout        = 30 * time.Second

	// Retry defaults
	DefaultRetryMaxAttempts   = 3
	DefaultRetryBaseDelay     = time.Second
	DefaultRetryBackoffFactor = 2.0
	DefaultRetryMaxDelay      = 5 * time.Minute

	// Optimization defaults
	DefaultOptimizationSchedule  = "@every 5m"
	DefaultLowSuccessThreshold   = 0.5
	DefaultSlowThresholdMs       = 5000.0
	DefaultErrorRateThreshold    = 0.3
	DefaultQueueDepthThreshold   = 1000
	DefaultTickDurationThreshold = 10 * time.Second

	// Workflow defaults
	DefaultWorkflowRetention = 5 * time.Minute

	// Agent defaults
	DefaultCommandBuffer = 256

	// Rules defaults
	DefaultRulesBackend    = "memory"
	DefaultRulesSQLitePath = "triton-rules.db"

	// Snapshot defaults
	DefaultSnapshotBackend    = "sqlite"
	DefaultSnapshotSQLitePath = "triton-snapshot.db"
	DefaultSnapshotInterval   = time.Minute

	// Telemetry defaults
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsNamespace     = "triton"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// DefaultConfig returns a configuration populated with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Agent.Evaluation.Interval <= 0 {
		cfg.Agent.Evaluation.Interval = DefaultEvaluationInterval
	}
	if cfg.Agent.Evaluation.BatchSize <= 0 {
		cfg.Agent.Evaluation.BatchSize = DefaultEvaluationBatchSize
	}
	if cfg.Agent.Evaluation.MaxConcurrent <= 0 {
		cfg.Agent.Evaluation.MaxConcurrent = DefaultEvaluationMaxConcurrent
	}

	if cfg.Agent.Execution.Interval <= 0 {
		cfg.Agent.Execution.Interval = DefaultExecutionInterval
	}
	if cfg.Agent.Execution.MaxParallel <= 0 {
		cfg.Agent.Execution.MaxParallel = DefaultExecutionMaxParallel
	}
	if cfg.Agent.Execution.ActionTimeout <= 0 {
		cfg.Agent.Execution.ActionTimeout = DefaultActionTimeout
	}

	if cfg.Agent.Retry.MaxAttempts <= 0 {
		cfg.Agent.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Agent.Retry.BaseDelay <= 0 {
		cfg.Agent.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Agent.Retry.BackoffFactor <= 0 {
		cfg.Agent.Retry.BackoffFactor = DefaultRetryBackoffFactor
	}
	if cfg.Agent.Retry.MaxDelay <= 0 {
		cfg.Agent.Retry.MaxDelay = DefaultRetryMaxDelay
	}

	if cfg.Agent.Optimization.Schedule == "" {
		cfg.Agent.Optimization.Schedule = DefaultOptimizationSchedule
	}
	if cfg.Agent.Optimization.LowSuccessThreshold <= 0 {
		cfg.Agent.Optimization.LowSuccessThreshold = DefaultLowSuccessThreshold
	}
	if cfg.Agent.Optimization.SlowThresholdMs <= 0 {
		cfg.Agent.Optimization.SlowThresholdMs = DefaultSlowThresholdMs
	}
	if cfg.Agent.Optimization.ErrorRateThreshold <= 0 {
		cfg.Agent.Optimization.ErrorRateThreshold = DefaultErrorRateThreshold
	}
	if cfg.Agent.Optimization.QueueDepthThreshold <= 0 {
		cfg.Agent.Optimization.QueueDepthThreshold = DefaultQueueDepthThreshold
	}
	if cfg.Agent.Optimization.TickDurationThreshold <= 0 {
		cfg.Agent.Optimization.TickDurationThreshold = DefaultTickDurationThreshold
	}

	if cfg.Agent.Workflow.Retention <= 0 {
		cfg.Agent.Workflow.Retention = DefaultWorkflowRetention
	}
	if cfg.Agent.CommandBuffer <= 0 {
		cfg.Agent.CommandBuffer = DefaultCommandBuffer
	}

	if cfg.Rules.Backend == "" {
		cfg.Rules.Backend = DefaultRulesBackend
	}
	if cfg.Rules.SQLitePath == "" {
		cfg.Rules.SQLitePath = DefaultRulesSQLitePath
	}

	if cfg.Snapshot.Backend == "" {
		cfg.Snapshot.Backend = DefaultSnapshotBackend
	}
	if cfg.Snapshot.SQLitePath == "" {
		cfg.Snapshot.SQLitePath = DefaultSnapshotSQLitePath
	}
	if cfg.Snapshot.Interval <= 0 {
		cfg.Snapshot.Interval = DefaultSnapshotInterval
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
