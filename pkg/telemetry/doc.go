// Package telemetry groups Triton's observability concerns.
//
// Two subpackages cover everything the agent emits:
//
//   - logging: structured logging via log/slog (JSON or text)
//   - metrics: Prometheus metrics and the /metrics endpoint
//
// Both are configured from the telemetry section of the configuration file.
package telemetry
