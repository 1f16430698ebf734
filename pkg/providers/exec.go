// Package providers supplies the default hook implementations: real command
// execution, expr-lang expression evaluation, and a readline-based console
// surface for prompts and choices.
package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
)

// RealExecutor runs commands via os/exec.
type RealExecutor struct{}

// Execute runs a command with the given arguments in cwd (empty = current
// directory). On Windows, if the command is not found directly it is retried
// through cmd.exe /C so that shell builtins (echo, set, …) work
// transparently. A non-zero exit is reported in the result, not the error.
func (r *RealExecutor) Execute(ctx context.Context, command string, args []string, cwd string) (*engine.CommandResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// On Windows, retry through cmd.exe when the executable is not found.
	// The entire command line goes as a single string after /C so exec
	// doesn't add extra quoting around individual arguments.
	if err != nil && runtime.GOOS == "windows" && isExecNotFound(err) {
		stdout.Reset()
		stderr.Reset()
		cmdLine := command
		for _, a := range args {
			cmdLine += " " + a
		}
		cmd = exec.CommandContext(ctx, "cmd.exe", "/C", cmdLine)
		cmd.Dir = cwd
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err = cmd.Run()
	}

	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("execute command %q: %w", command, err)
		}
	}

	return &engine.CommandResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

// isExecNotFound returns true when the error indicates the executable was not found.
func isExecNotFound(err error) bool {
	if err == exec.ErrNotFound {
		return true
	}
	var execErr *exec.Error
	return errors.As(err, &execErr)
}

// ExecCommandHook adapts a RealExecutor to the engine's ExecCommand hook.
func ExecCommandHook() func(ctx context.Context, command string, args []string, cwd string, rc *engine.RunnerContext) (*engine.CommandResult, error) {
	r := &RealExecutor{}
	return func(ctx context.Context, command string, args []string, cwd string, rc *engine.RunnerContext) (*engine.CommandResult, error) {
		return r.Execute(ctx, command, args, cwd)
	}
}
