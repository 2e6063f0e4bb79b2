package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relay-hq/triton/pkg/automation/monitor"
	"relay-hq/triton/pkg/automation/workflow"
)

// snapshotVersion guards against decoding blobs written by an
// incompatible build.
const snapshotVersion = 1

// snapshotState is the persisted operational state. Counters are
// informational; the performance history and workflow aggregates are
// restored, executions are never replayed.
type snapshotState struct {
	Version     int                      `json:"version"`
	SavedAt     time.Time                `json:"saved_at"`
	Counters    snapshotCounters         `json:"counters"`
	Performance []monitor.RecordSnapshot `json:"performance"`
	Workflows   workflow.Aggregates      `json:"workflows"`
}

type snapshotCounters struct {
	Matched   int64 `json:"matched"`
	Skipped   int64 `json:"skipped"`
	Executed  int64 `json:"executed"`
	Failed    int64 `json:"failed"`
	Discarded int64 `json:"discarded"`
}

// saveSnapshot serializes the operational state to the snapshot backend.
func (a *Agent) saveSnapshot(ctx context.Context) error {
	state := snapshotState{
		Version: snapshotVersion,
		SavedAt: time.Now(),
		Counters: snapshotCounters{
			Matched:   a.dispatcher.Matched(),
			Skipped:   a.dispatcher.Skipped(),
			Executed:  a.execSched.Executed(),
			Failed:    a.execSched.Failed(),
			Discarded: a.execSched.Discarded(),
		},
		Performance: a.monitor.Export(),
		Workflows:   a.tracker.Aggregates(),
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := a.deps.Snapshots.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	a.logger.Debug("snapshot saved",
		"rules_tracked", len(state.Performance),
		"bytes", len(data),
	)
	return nil
}

// restoreSnapshot loads the most recent snapshot and imports the
// performance history and workflow aggregates. Unknown versions are
// skipped, not failed.
func (a *Agent) restoreSnapshot(ctx context.Context) error {
	data, err := a.deps.Snapshots.Load(ctx)
	if err != nil {
		return err
	}

	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if state.Version != snapshotVersion {
		a.logger.Warn("ignoring snapshot with unknown version",
			"version", state.Version,
		)
		return nil
	}

	a.monitor.Import(state.Performance)
	if err := a.tracker.ImportAggregates(state.Workflows); err != nil {
		a.logger.Warn("workflow aggregates not restored", "error", err)
	}

	a.logger.Info("snapshot restored",
		"saved_at", state.SavedAt,
		"rules_tracked", len(state.Performance),
		"workflows_completed", state.Workflows.Completed,
		"workflows_failed", state.Workflows.Failed,
	)
	return nil
}
