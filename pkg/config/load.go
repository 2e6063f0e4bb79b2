package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file. Defaults are applied
// first, so absent fields keep their default values, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention TRITON_SECTION_FIELD (e.g. TRITON_RULES_PATH) and always take
// precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies TRITON_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Agent overrides
	if d, ok := envDuration("TRITON_AGENT_EVALUATION_INTERVAL"); ok {
		cfg.Agent.Evaluation.Interval = d
	}
	if n, ok := envInt("TRITON_AGENT_EVALUATION_BATCH_SIZE"); ok {
		cfg.Agent.Evaluation.BatchSize = n
	}
	if n, ok := envInt("TRITON_AGENT_EVALUATION_MAX_CONCURRENT"); ok {
		cfg.Agent.Evaluation.MaxConcurrent = n
	}
	if d, ok := envDuration("TRITON_AGENT_EXECUTION_INTERVAL"); ok {
		cfg.Agent.Execution.Interval = d
	}
	if n, ok := envInt("TRITON_AGENT_EXECUTION_MAX_PARALLEL"); ok {
		cfg.Agent.Execution.MaxParallel = n
	}
	if d, ok := envDuration("TRITON_AGENT_EXECUTION_ACTION_TIMEOUT"); ok {
		cfg.Agent.Execution.ActionTimeout = d
	}
	if n, ok := envInt("TRITON_AGENT_RETRY_MAX_ATTEMPTS"); ok {
		cfg.Agent.Retry.MaxAttempts = n
	}
	if d, ok := envDuration("TRITON_AGENT_RETRY_BASE_DELAY"); ok {
		cfg.Agent.Retry.BaseDelay = d
	}
	if f, ok := envFloat("TRITON_AGENT_RETRY_BACKOFF_FACTOR"); ok {
		cfg.Agent.Retry.BackoffFactor = f
	}
	if d, ok := envDuration("TRITON_AGENT_RETRY_MAX_DELAY"); ok {
		cfg.Agent.Retry.MaxDelay = d
	}
	if val := os.Getenv("TRITON_AGENT_OPTIMIZATION_SCHEDULE"); val != "" {
		cfg.Agent.Optimization.Schedule = val
	}
	if d, ok := envDuration("TRITON_AGENT_WORKFLOW_RETENTION"); ok {
		cfg.Agent.Workflow.Retention = d
	}

	// Rules overrides
	if val := os.Getenv("TRITON_RULES_PATH"); val != "" {
		cfg.Rules.Path = val
	}
	if b, ok := envBool("TRITON_RULES_WATCH"); ok {
		cfg.Rules.Watch = b
	}
	if val := os.Getenv("TRITON_RULES_BACKEND"); val != "" {
		cfg.Rules.Backend = val
	}
	if val := os.Getenv("TRITON_RULES_SQLITE_PATH"); val != "" {
		cfg.Rules.SQLitePath = val
	}

	// Snapshot overrides
	if b, ok := envBool("TRITON_SNAPSHOT_ENABLED"); ok {
		cfg.Snapshot.Enabled = b
	}
	if val := os.Getenv("TRITON_SNAPSHOT_BACKEND"); val != "" {
		cfg.Snapshot.Backend = val
	}
	if val := os.Getenv("TRITON_SNAPSHOT_SQLITE_PATH"); val != "" {
		cfg.Snapshot.SQLitePath = val
	}
	if d, ok := envDuration("TRITON_SNAPSHOT_INTERVAL"); ok {
		cfg.Snapshot.Interval = d
	}

	// Telemetry overrides
	if val := os.Getenv("TRITON_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TRITON_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if b, ok := envBool("TRITON_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = b
	}
	if val := os.Getenv("TRITON_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}

func envDuration(key string) (time.Duration, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}
