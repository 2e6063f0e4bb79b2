// Package workflow tracks workflow runs from start to terminal state and
// keeps rolling success and duration aggregates. Terminal records are
// evicted lazily after a retention window.
package workflow
