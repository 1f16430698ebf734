package providers

import (
	"strings"
	"testing"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
)

// TestEvaluateBasics covers boolean expressions over string variables.
func TestEvaluateBasics(t *testing.T) {
	vars := map[string]string{
		"name":   "alice",
		"status": "ready",
		"empty":  "",
	}

	cases := []struct {
		expr string
		want bool
	}{
		{`name == "alice"`, true},
		{`name != "bob"`, true},
		{`status == "done"`, false},
		{`empty == ""`, true},
		{`name == "alice" && status == "ready"`, true},
		{`name == "bob" || status == "ready"`, true},
		{`vars["name"] == "alice"`, true},
		{"", true}, // empty guard is always true
	}

	for _, tc := range cases {
		got, err := Evaluate(tc.expr, vars)
		if err != nil {
			t.Errorf("Evaluate(%q) error: %v", tc.expr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

// TestEvaluateStructuredValues verifies JSON-shaped variable values are
// coerced so len and member access work.
func TestEvaluateStructuredValues(t *testing.T) {
	vars := map[string]string{
		"items":  `["a", "b", "c"]`,
		"config": `{"enabled": true}`,
	}

	got, err := Evaluate(`len(items) > 1`, vars)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !got {
		t.Errorf("len(items) > 1 = false, want true for a 3-element array")
	}

	got, err = Evaluate(`config.enabled`, vars)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !got {
		t.Errorf("config.enabled = false, want true")
	}
}

// TestEvaluateNonBool verifies a non-boolean expression is rejected at
// compile time.
func TestEvaluateNonBool(t *testing.T) {
	if _, err := Evaluate(`name`, map[string]string{"name": "alice"}); err == nil {
		t.Errorf("expected error for a string-valued expression")
	}
}

// TestEvaluateCompileError verifies malformed expressions report the
// offending expression text.
func TestEvaluateCompileError(t *testing.T) {
	_, err := Evaluate(`name ==`, map[string]string{"name": "alice"})
	if err == nil {
		t.Fatalf("expected compile error")
	}
	if !strings.Contains(err.Error(), "name ==") {
		t.Errorf("error %q does not name the expression", err)
	}
}

// TestEvaluateHookReadsRunnerContext verifies the hook evaluates against the
// run's current variables.
func TestEvaluateHookReadsRunnerContext(t *testing.T) {
	hook := EvaluateHook()
	rc := &engine.RunnerContext{Vars: map[string]string{"mode": "fast"}}

	got, err := hook(`mode == "fast"`, rc)
	if err != nil {
		t.Fatalf("hook error: %v", err)
	}
	if !got {
		t.Errorf("hook = false, want true")
	}
}
