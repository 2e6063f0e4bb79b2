package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("Validate(DefaultConfig()) = %v, want nil", err)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
rules:
  path: rules.yaml
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Agent.Evaluation.Interval != DefaultEvaluationInterval {
		t.Errorf("Evaluation.Interval = %v, want default %v",
			cfg.Agent.Evaluation.Interval, DefaultEvaluationInterval)
	}
	if cfg.Agent.Retry.MaxAttempts != DefaultRetryMaxAttempts {
		t.Errorf("Retry.MaxAttempts = %d, want default %d",
			cfg.Agent.Retry.MaxAttempts, DefaultRetryMaxAttempts)
	}
	if cfg.Rules.Path != "rules.yaml" {
		t.Errorf("Rules.Path = %q, want rules.yaml", cfg.Rules.Path)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want default true")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
agent:
  execution:
    max_parallel: 25
    action_timeout: 90s
  retry:
    max_attempts: 5
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Agent.Execution.MaxParallel != 25 {
		t.Errorf("MaxParallel = %d, want 25", cfg.Agent.Execution.MaxParallel)
	}
	if cfg.Agent.Execution.ActionTimeout != 90*time.Second {
		t.Errorf("ActionTimeout = %v, want 90s", cfg.Agent.Execution.ActionTimeout)
	}
	if cfg.Agent.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Agent.Retry.MaxAttempts)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Telemetry.Logging)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want explicit false to stick")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "bad rules backend",
			content: `
rules:
  backend: cassandra
`,
			field: "rules.backend",
		},
		{
			name: "watch without path",
			content: `
rules:
  watch: true
`,
			field: "rules.watch",
		},
		{
			name: "bad log level",
			content: `
telemetry:
  logging:
    level: verbose
`,
			field: "telemetry.logging.level",
		},
		{
			name: "bad optimization schedule",
			content: `
agent:
  optimization:
    schedule: whenever
`,
			field: "agent.optimization.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name field %s", err, tt.field)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
rules:
  path: from-file.yaml
`)

	t.Setenv("TRITON_RULES_PATH", "from-env.yaml")
	t.Setenv("TRITON_AGENT_EXECUTION_MAX_PARALLEL", "99")
	t.Setenv("TRITON_AGENT_RETRY_BASE_DELAY", "250ms")
	t.Setenv("TRITON_METRICS_ENABLED", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Rules.Path != "from-env.yaml" {
		t.Errorf("Rules.Path = %q, want from-env.yaml", cfg.Rules.Path)
	}
	if cfg.Agent.Execution.MaxParallel != 99 {
		t.Errorf("MaxParallel = %d, want 99", cfg.Agent.Execution.MaxParallel)
	}
	if cfg.Agent.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 250ms", cfg.Agent.Retry.BaseDelay)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want env override false")
	}
}

func TestEnvOverridesIgnoreMalformed(t *testing.T) {
	path := writeConfig(t, ``)

	t.Setenv("TRITON_AGENT_EXECUTION_MAX_PARALLEL", "lots")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Agent.Execution.MaxParallel != DefaultExecutionMaxParallel {
		t.Errorf("MaxParallel = %d, want default %d",
			cfg.Agent.Execution.MaxParallel, DefaultExecutionMaxParallel)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() on missing file succeeded, want error")
	}
}
