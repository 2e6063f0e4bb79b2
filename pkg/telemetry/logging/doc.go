// Package logging builds the process-wide structured logger.
//
// Triton logs exclusively through log/slog; this package translates the
// telemetry.logging configuration section into a configured *slog.Logger
// (JSON or text handler, leveled). Components derive their own loggers
// with logger.With("component", ...).
package logging
