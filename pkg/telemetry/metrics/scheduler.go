package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"relay-hq/triton/pkg/config"
)

// Queue and scheduler label values.
const (
	QueueEvaluation = "evaluation"
	QueueExecution  = "execution"

	SchedulerEvaluation = "evaluation"
	SchedulerExecution  = "execution"
)

// Execution outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
	OutcomeDropped   = "dropped"
)

// SchedulerMetrics tracks scheduler tick behavior and queue pressure.
//
// Metrics:
//   - triton_queue_depth: current number of pending items per queue
//   - triton_scheduler_tick_duration_seconds: tick duration per scheduler
//   - triton_scheduler_skipped_ticks_total: ticks skipped because the
//     previous tick was still running
//   - triton_executions_total: action execution outcomes
type SchedulerMetrics struct {
	queueDepth      *prometheus.GaugeVec
	tickDuration    *prometheus.HistogramVec
	skippedTicks    *prometheus.CounterVec
	executionsTotal *prometheus.CounterVec
}

// NewSchedulerMetrics creates and registers scheduler metrics with the
// provided registry.
func NewSchedulerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SchedulerMetrics {
	sm := &SchedulerMetrics{
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "queue_depth",
				Help:      "Current number of pending items in a work queue",
			},
			[]string{"queue"},
		),

		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "scheduler_tick_duration_seconds",
				Help:      "Duration of a scheduler tick in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~260s
			},
			[]string{"scheduler"},
		),

		skippedTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "scheduler_skipped_ticks_total",
				Help:      "Ticks skipped because the previous tick was still running",
			},
			[]string{"scheduler"},
		),

		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "executions_total",
				Help:      "Action execution outcomes",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(sm.queueDepth, sm.tickDuration, sm.skippedTicks, sm.executionsTotal)
	return sm
}

// SetQueueDepth records the current depth of the named queue.
func (sm *SchedulerMetrics) SetQueueDepth(queue string, depth int) {
	sm.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveTick records the duration of a completed scheduler tick.
func (sm *SchedulerMetrics) ObserveTick(scheduler string, duration time.Duration) {
	sm.tickDuration.WithLabelValues(scheduler).Observe(duration.Seconds())
}

// RecordSkippedTick records a tick that found the previous one still running.
func (sm *SchedulerMetrics) RecordSkippedTick(scheduler string) {
	sm.skippedTicks.WithLabelValues(scheduler).Inc()
}

// AddExecutions records n action executions with the given outcome.
func (sm *SchedulerMetrics) AddExecutions(outcome string, n int) {
	if n <= 0 {
		return
	}
	sm.executionsTotal.WithLabelValues(outcome).Add(float64(n))
}
