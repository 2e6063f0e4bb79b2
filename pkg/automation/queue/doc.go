// Package queue provides the evaluation and execution work queues used by
// the automation schedulers.
//
// A Queue hands out priority-descending, arrival-stable batches and supports
// timer-based delayed re-enqueue for the retry path. BackoffPolicy computes
// the exponential retry delays and the discard point.
package queue
