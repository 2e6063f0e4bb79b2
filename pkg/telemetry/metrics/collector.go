package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"relay-hq/triton/pkg/config"
)

// Collector owns all Prometheus metrics exposed by the agent. It registers
// the per-subsystem metric groups with a single registry and hands out the
// typed recorders the rest of the codebase wires against.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	ruleMetrics      *RuleMetrics
	schedulerMetrics *SchedulerMetrics
	workflowMetrics  *WorkflowMetrics
}

// NewCollector creates a metrics collector backed by the given registry.
// A nil registry allocates a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "triton"
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		ruleMetrics:      NewRuleMetrics(cfg, registry),
		schedulerMetrics: NewSchedulerMetrics(cfg, registry),
		workflowMetrics:  NewWorkflowMetrics(cfg, registry),
	}
}

// Rules returns the rule matching metrics group.
func (c *Collector) Rules() *RuleMetrics { return c.ruleMetrics }

// Schedulers returns the scheduler and queue metrics group.
func (c *Collector) Schedulers() *SchedulerMetrics { return c.schedulerMetrics }

// Workflows returns the workflow lifecycle metrics group.
func (c *Collector) Workflows() *WorkflowMetrics { return c.workflowMetrics }

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
