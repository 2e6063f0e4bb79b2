package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"relay-hq/triton/pkg/automation/rule"
)

// rulesFile is the on-disk shape of a rules seed file.
type rulesFile struct {
	Rules []*rule.Rule `yaml:"rules"`
}

// LoadRulesFile reads and validates a YAML rules file. Every rule in the
// file must pass validation; a single bad rule rejects the whole file so a
// hot reload never installs a partially valid set.
func LoadRulesFile(path string) ([]*rule.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	now := time.Now()
	seen := make(map[string]bool, len(file.Rules))
	for i, r := range file.Rules {
		if r == nil {
			return nil, fmt.Errorf("rule at index %d is empty", i)
		}
		if r.ID == "" {
			return nil, fmt.Errorf("rule at index %d (%q) has no id", i, r.Name)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = r.CreatedAt
		}

		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q is invalid: %w", r.ID, err)
		}
	}

	return file.Rules, nil
}
