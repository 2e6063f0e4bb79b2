package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"relay-hq/triton/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:       true,
		Namespace:     "triton",
		ListenAddress: "127.0.0.1:0",
		Path:          "/metrics",
	}
}

func TestNewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
	if collector.Rules() == nil || collector.Schedulers() == nil || collector.Workflows() == nil {
		t.Error("metric groups not initialized")
	}
}

func TestRuleMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	rm := collector.Rules()

	rm.RecordMatch("welcome", 120*time.Microsecond)
	rm.RecordMatch("welcome", 80*time.Microsecond)
	rm.RecordSkip("welcome")
	rm.RecordSkip("tagger")

	if got := testutil.ToFloat64(rm.matchesTotal.WithLabelValues("welcome")); got != 2 {
		t.Errorf("matches(welcome) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.skipsTotal.WithLabelValues("welcome")); got != 1 {
		t.Errorf("skips(welcome) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.skipsTotal.WithLabelValues("tagger")); got != 1 {
		t.Errorf("skips(tagger) = %v, want 1", got)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	sm := collector.Schedulers()

	sm.SetQueueDepth(QueueEvaluation, 7)
	sm.SetQueueDepth(QueueExecution, 2)
	sm.RecordSkippedTick(SchedulerExecution)
	sm.AddExecutions(OutcomeSuccess, 2)
	sm.AddExecutions(OutcomeDiscarded, 1)
	sm.AddExecutions(OutcomeFailure, 0) // no-op

	if got := testutil.ToFloat64(sm.queueDepth.WithLabelValues(QueueEvaluation)); got != 7 {
		t.Errorf("queue_depth(evaluation) = %v, want 7", got)
	}
	if got := testutil.ToFloat64(sm.skippedTicks.WithLabelValues(SchedulerExecution)); got != 1 {
		t.Errorf("skipped_ticks(execution) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sm.executionsTotal.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("executions(success) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sm.executionsTotal.WithLabelValues(OutcomeDiscarded)); got != 1 {
		t.Errorf("executions(discarded) = %v, want 1", got)
	}
}

func TestWorkflowMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	wm := collector.Workflows()

	wm.RecordStarted()
	wm.RecordStarted()
	wm.RecordFinished("completed", 1500)
	wm.RecordFinished("failed", 300)

	if got := testutil.ToFloat64(wm.startedTotal); got != 2 {
		t.Errorf("workflows_started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(wm.finishedTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("workflows_finished(completed) = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.Rules().RecordMatch("welcome", time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "triton_rule_matches_total") {
		t.Errorf("exposition missing triton_rule_matches_total:\n%s", body)
	}
}
