package metrics

import (
	"context"
	"log/slog"

	"relay-hq/triton/pkg/bus"
)

// Exporter consumes agent bus events and feeds the workflow metric group.
// Scheduler and rule metrics are recorded at the source; workflow lifecycle
// events only surface on the bus, so they are bridged here.
type Exporter struct {
	collector *Collector
	logger    *slog.Logger
}

// NewExporter creates a bus-to-metrics exporter.
func NewExporter(collector *Collector, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		collector: collector,
		logger:    logger.With("component", "telemetry.exporter"),
	}
}

// Run consumes events until the channel closes or the context is canceled.
// Intended to run as a goroutine alongside the agent.
func (e *Exporter) Run(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handle(ev)
		}
	}
}

func (e *Exporter) handle(ev bus.Event) {
	switch ev := ev.(type) {
	case bus.WorkflowStarted:
		e.collector.Workflows().RecordStarted()
	case bus.WorkflowFinished:
		status := "completed"
		if !ev.Success {
			status = "failed"
		}
		e.collector.Workflows().RecordFinished(status, float64(ev.Duration.Milliseconds()))
	case bus.AnomalyDetected:
		for _, an := range ev.Anomalies {
			e.logger.Warn("anomaly reported",
				"type", an.Type,
				"value", an.Value,
				"threshold", an.Threshold,
			)
		}
	}
}
