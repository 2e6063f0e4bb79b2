package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g. "agent.retry.max_attempts").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. All field errors are collected and returned together.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. It returns nil when the
// configuration is valid; otherwise a ValidationError carrying every
// failed field.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateAgent(&cfg.Agent)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateSnapshot(&cfg.Snapshot)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateAgent(cfg *AgentConfig) []FieldError {
	var errs []FieldError

	if cfg.Evaluation.Interval <= 0 {
		errs = append(errs, FieldError{"agent.evaluation.interval", "must be positive"})
	}
	if cfg.Evaluation.BatchSize <= 0 {
		errs = append(errs, FieldError{"agent.evaluation.batch_size", "must be positive"})
	}
	if cfg.Evaluation.MaxConcurrent <= 0 {
		errs = append(errs, FieldError{"agent.evaluation.max_concurrent", "must be positive"})
	}
	if cfg.Execution.Interval <= 0 {
		errs = append(errs, FieldError{"agent.execution.interval", "must be positive"})
	}
	if cfg.Execution.MaxParallel <= 0 {
		errs = append(errs, FieldError{"agent.execution.max_parallel", "must be positive"})
	}
	if cfg.Execution.ActionTimeout <= 0 {
		errs = append(errs, FieldError{"agent.execution.action_timeout", "must be positive"})
	}
	if cfg.Retry.MaxAttempts <= 0 {
		errs = append(errs, FieldError{"agent.retry.max_attempts", "must be positive"})
	}
	if cfg.Retry.BackoffFactor < 1 {
		errs = append(errs, FieldError{"agent.retry.backoff_factor", "must be at least 1"})
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		errs = append(errs, FieldError{"agent.retry.max_delay", "must not be smaller than base_delay"})
	}
	if cfg.Optimization.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Optimization.Schedule); err != nil {
			errs = append(errs, FieldError{"agent.optimization.schedule",
				fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if cfg.Optimization.LowSuccessThreshold < 0 || cfg.Optimization.LowSuccessThreshold > 1 {
		errs = append(errs, FieldError{"agent.optimization.low_success_threshold", "must be between 0 and 1"})
	}
	if cfg.Optimization.ErrorRateThreshold < 0 || cfg.Optimization.ErrorRateThreshold > 1 {
		errs = append(errs, FieldError{"agent.optimization.error_rate_threshold", "must be between 0 and 1"})
	}
	if cfg.Workflow.Retention <= 0 {
		errs = append(errs, FieldError{"agent.workflow.retention", "must be positive"})
	}

	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"rules.backend",
			fmt.Sprintf("unknown backend %q, must be \"memory\" or \"sqlite\"", cfg.Backend)})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{"rules.sqlite_path", "required with the sqlite backend"})
	}
	if cfg.Watch && cfg.Path == "" {
		errs = append(errs, FieldError{"rules.watch", "requires rules.path to be set"})
	}

	return errs
}

func validateSnapshot(cfg *SnapshotConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"snapshot.backend",
			fmt.Sprintf("unknown backend %q, must be \"memory\" or \"sqlite\"", cfg.Backend)})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{"snapshot.sqlite_path", "required with the sqlite backend"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level",
			fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format",
			fmt.Sprintf("unknown format %q, must be \"json\" or \"text\"", cfg.Logging.Format)})
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{"telemetry.metrics.listen_address", "required when metrics are enabled"})
	}

	return errs
}
