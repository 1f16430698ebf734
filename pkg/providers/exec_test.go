package providers

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

// TestExecuteCapturesStdout runs a real echo and verifies output capture.
func TestExecuteCapturesStdout(t *testing.T) {
	r := &RealExecutor{}
	result, err := r.Execute(context.Background(), "echo", []string{"hello"}, "")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Errorf("stdout = %q, want it to contain hello", result.Stdout)
	}
	if result.Duration <= 0 {
		t.Errorf("duration = %v, want > 0", result.Duration)
	}
}

// TestExecuteRespectsCwd verifies the working directory applies.
func TestExecuteRespectsCwd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pwd is not available on windows")
	}
	dir := t.TempDir()
	r := &RealExecutor{}
	result, err := r.Execute(context.Background(), "pwd", nil, dir)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("pwd = %q, want %q", result.Stdout, dir)
	}
}

// TestExecuteNotFound verifies a missing executable is a hook error, not a
// nonzero-exit result.
func TestExecuteNotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows falls back to cmd.exe for unknown commands")
	}
	r := &RealExecutor{}
	_, err := r.Execute(context.Background(), "definitely-not-a-command-xyz", nil, "")
	if err == nil {
		t.Fatalf("expected error for a nonexistent executable")
	}
}
