// Package config provides configuration management for Triton.
//
// Configuration is loaded from YAML with sensible defaults and optional
// environment variable overrides:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. With environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// Environment variables follow the naming convention TRITON_SECTION_FIELD,
// e.g. TRITON_RULES_PATH or TRITON_AGENT_EXECUTION_MAX_PARALLEL, and always
// take precedence over file-based configuration.
package config
