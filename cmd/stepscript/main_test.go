package main

import (
	"testing"
)

// TestRunFlagRegistration verifies the run command exposes its documented
// flags, the repeatable --vars in particular.
func TestRunFlagRegistration(t *testing.T) {
	for _, name := range []string{"vars", "resume", "restart", "tui", "max-steps", "state-dir"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command missing --%s flag", name)
		}
	}
}

// TestParseVars covers name=value parsing for the --vars flag.
func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"env=prod", "region=eu-west-1", "note=a=b"})
	if err != nil {
		t.Fatalf("parseVars error: %v", err)
	}
	if vars["env"] != "prod" || vars["region"] != "eu-west-1" {
		t.Errorf("vars = %v, want env and region parsed", vars)
	}
	// The first = splits; the value keeps the rest.
	if vars["note"] != "a=b" {
		t.Errorf("vars[note] = %q, want a=b", vars["note"])
	}

	for _, bad := range []string{"novalue", "=prod"} {
		if _, err := parseVars([]string{bad}); err == nil {
			t.Errorf("parseVars(%q) accepted malformed input", bad)
		}
	}
}
