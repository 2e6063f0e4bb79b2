// Package scheduler drives the two automation queues with cooperative,
// single-flight ticks. The evaluation scheduler re-checks rule conditions
// and promotes matches; the execution scheduler runs matched rules against
// contacts with bounded parallelism, per-item retry backoff, and exactly-one
// permanent-failure signaling.
package scheduler
