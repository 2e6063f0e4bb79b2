package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relay-hq/triton/pkg/automation/store"
	"relay-hq/triton/pkg/cli"
	"relay-hq/triton/pkg/config"
)

var validateFlags struct {
	rulesFile string
	format    string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and rules files",
	Long: `Validate the configuration file and, optionally, a YAML rules file.

The rules file is checked the same way the agent checks it at startup: every
rule needs a unique id, a name, a trigger type and well-formed conditions.
A single bad rule rejects the whole file.

Examples:
  # Validate the configuration only
  triton validate

  # Validate configuration and a rules file
  triton validate --rules rules.yaml

  # Machine-readable report
  triton validate --rules rules.yaml --format json`,
	RunE: validateFiles,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.rulesFile, "rules", "", "rules file to validate (defaults to rules.path from config)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

type validationReport struct {
	ConfigFile  string   `json:"config_file"`
	ConfigValid bool     `json:"config_valid"`
	RulesFile   string   `json:"rules_file,omitempty"`
	RulesValid  bool     `json:"rules_valid"`
	RuleIDs     []string `json:"rule_ids,omitempty"`
}

func validateFiles(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("invalid configuration: %v", err))
	}

	report := validationReport{
		ConfigFile:  cfgFile,
		ConfigValid: true,
		RulesValid:  true,
	}

	rulesFile := validateFlags.rulesFile
	if rulesFile == "" {
		rulesFile = cfg.Rules.Path
	}
	if rulesFile != "" {
		report.RulesFile = rulesFile
		rules, err := store.LoadRulesFile(rulesFile)
		if err != nil {
			return cli.NewCommandError("validate", fmt.Errorf("rules file %s: %w", rulesFile, err))
		}
		for _, r := range rules {
			report.RuleIDs = append(report.RuleIDs, r.ID)
		}
	}

	formatter := cli.NewFormatter(cli.OutputFormat(validateFlags.format))
	if validateFlags.format == "json" {
		return formatter.FormatTo(os.Stdout, report)
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	if report.RulesFile != "" {
		fmt.Printf("✓ Rules valid: %s (%d rules)\n", report.RulesFile, len(report.RuleIDs))
	}
	return nil
}
