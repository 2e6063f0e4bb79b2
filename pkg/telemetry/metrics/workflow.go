package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"relay-hq/triton/pkg/config"
)

// WorkflowMetrics tracks multi-step workflow lifecycles.
//
// Metrics:
//   - triton_workflows_started_total: workflows started
//   - triton_workflows_finished_total: workflows finished, by terminal status
//   - triton_workflow_duration_seconds: start-to-finish workflow duration
type WorkflowMetrics struct {
	startedTotal  prometheus.Counter
	finishedTotal *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewWorkflowMetrics creates and registers workflow metrics with the
// provided registry.
func NewWorkflowMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *WorkflowMetrics {
	wm := &WorkflowMetrics{
		startedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "workflows_started_total",
				Help:      "Total number of workflows started",
			},
		),

		finishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "workflows_finished_total",
				Help:      "Total number of workflows finished, by terminal status",
			},
			[]string{"status"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "workflow_duration_seconds",
				Help:      "Start-to-finish workflow duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45m
			},
		),
	}

	registry.MustRegister(wm.startedTotal, wm.finishedTotal, wm.duration)
	return wm
}

// RecordStarted records a workflow start.
func (wm *WorkflowMetrics) RecordStarted() {
	wm.startedTotal.Inc()
}

// RecordFinished records a workflow reaching a terminal status.
func (wm *WorkflowMetrics) RecordFinished(status string, durationMs float64) {
	wm.finishedTotal.WithLabelValues(status).Inc()
	wm.duration.Observe(durationMs / 1000)
}
