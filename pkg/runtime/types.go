// Package runtime implements the step interpreter: a state machine walking a
// validated script's step graph, dispatching per step type to injected hooks.
package runtime

import (
	"time"
)

// Run statuses reported in a RunnerResult.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusCancel  = "cancel"
)

// Step result statuses recorded in the trace.
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// RunnerContext is the mutable per-run state visible to hooks: the variable
// store and the id of the step currently executing. Owned exclusively by one
// in-flight run.
type RunnerContext struct {
	Vars          map[string]string `json:"vars"`
	CurrentStepID string            `json:"current_step_id"`
}

// RunnerResult is the immutable outcome of a run, returned once per run.
type RunnerResult struct {
	Status      string            `json:"status"` // success, failure, cancel
	StepsRun    int               `json:"steps_run"`
	Vars        map[string]string `json:"vars"`
	LastMessage string            `json:"last_message,omitempty"`
}

// CommandResult holds the output of a command hook invocation.
type CommandResult struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// RunState is the complete execution state at a point in time.
// Serialized to JSON for snapshot persistence.
type RunState struct {
	RunID         string            `json:"run_id"`
	ScriptName    string            `json:"script_name,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	CurrentStepID string            `json:"current_step_id"`
	Vars          map[string]string `json:"vars"`
	Answers       map[string]string `json:"answers"`
	History       []*StepResult     `json:"history"`
}

// StepResult is the outcome of executing a single step, written to trace.
type StepResult struct {
	RunID      string    `json:"run_id"`
	StepID     string    `json:"step_id"`
	StepIndex  int       `json:"step_index"`
	Type       string    `json:"type"`
	Status     string    `json:"status"` // passed, failed, skipped
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Answer     string    `json:"answer,omitempty"`
	NextStepID string    `json:"next_step_id,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// TraceEvent wraps a StepResult for JSONL trace output with extra metadata.
type TraceEvent struct {
	Type      string      `json:"type"` // step_result
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id"`
	Result    *StepResult `json:"result"`
}

// RunManifest records the complete metadata for a script execution.
// Written as run.yaml after a run completes (or fails).
type RunManifest struct {
	RunID        string            `yaml:"run_id"            json:"run_id"`
	Script       string            `yaml:"script"            json:"script"`
	StartedAt    string            `yaml:"started_at"        json:"started_at"`
	EndedAt      string            `yaml:"ended_at"          json:"ended_at"`
	Status       string            `yaml:"status"            json:"status"`
	LastMessage  string            `yaml:"last_message,omitempty" json:"last_message,omitempty"`
	VarsResolved map[string]string `yaml:"vars_resolved,omitempty" json:"vars_resolved,omitempty"`
	StepsSummary StepsSummary      `yaml:"steps_summary"     json:"steps_summary"`
}

// StepsSummary counts step results by status.
type StepsSummary struct {
	Total   int `yaml:"total"   json:"total"`
	Passed  int `yaml:"passed"  json:"passed"`
	Failed  int `yaml:"failed"  json:"failed"`
	Skipped int `yaml:"skipped" json:"skipped"`
}
