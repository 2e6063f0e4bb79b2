package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("rules.path", "file does not exist")
	if !strings.Contains(err.Error(), "rules.path") {
		t.Errorf("ConfigError does not name field: %q", err.Error())
	}

	// No field: the message stands on its own, no dangling "in".
	bare := NewConfigError("", "failed to load config")
	if strings.Contains(bare.Error(), " in ") {
		t.Errorf("field-less ConfigError = %q", bare.Error())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("run", cause)

	if !errors.Is(err, cause) {
		t.Error("CommandError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "run") {
		t.Errorf("CommandError does not name command: %q", err.Error())
	}
}
