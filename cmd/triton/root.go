package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "triton",
	Short: "Triton - event-driven automation rule engine",
	Long: `Triton is an event-driven automation rule engine.

It evaluates user-defined rules against inbound trigger events and runs
their actions on cooperative scheduler ticks, providing:
  - Rule CRUD with memory or SQLite persistence and YAML seed files
  - Condition matching over trigger payloads (AND semantics)
  - Retry with exponential backoff and permanent-failure signaling
  - Per-rule performance monitoring and anomaly detection
  - Workflow lifecycle tracking`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
