// Package snapshot persists the agent's operational state (counters,
// performance history, suggestions) as an opaque blob between restarts.
// Snapshots are best-effort: a missing or corrupt snapshot means a cold
// start, never a failed one.
package snapshot
