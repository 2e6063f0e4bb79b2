// Package metrics exposes the agent's Prometheus instrumentation.
//
// A single Collector registers three metric groups with one registry:
// rule matching (trigger dispatch outcomes), scheduler behavior (queue
// depth, tick durations, execution outcomes) and workflow lifecycles.
// The Collector also serves the /metrics endpoint.
package metrics
