// Triton is an event-driven automation rule engine.
//
// It evaluates user-defined rules against inbound trigger events and runs
// their actions on cooperative scheduler ticks, providing:
//   - Rule CRUD with memory or SQLite persistence and YAML seed files
//   - Condition matching over trigger payloads (AND semantics)
//   - Retry with exponential backoff and permanent-failure signaling
//   - Per-rule performance monitoring and anomaly detection
//   - Workflow lifecycle tracking
//
// Usage:
//
//	# Start the agent with default configuration
//	triton run
//
//	# Start with a custom configuration file
//	triton run --config /path/to/config.yaml
//
//	# Validate a configuration and rules file without starting
//	triton validate --rules rules.yaml
//
//	# Show version information
//	triton version
package main

func main() {
	Execute()
}
