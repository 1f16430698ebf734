package runtime

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ormasoftchile/stepscript/pkg/schema"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSteps is the per-run step ceiling. Every dispatched step counts
// against it, skipped or executed, so guard-heavy cycles still trip.
const DefaultMaxSteps = 1000

// GenerateRunID creates a run ID in format YYYYMMDDTHHmmss-xxxx.
func GenerateRunID() string {
	ts := time.Now().Format("20060102T150405")
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%x", ts, suffix)
}

// Engine drives one run of a validated script. It holds no state shared
// across runs; create one engine per run.
type Engine struct {
	Script   *schema.Script
	Hooks    Hooks
	State    *RunState
	Trace    *TraceWriter // nil = no trace output
	BaseDir  string       // .stepscript/runs/<run_id>/, empty when artifacts are off
	MaxSteps int
	Observer func(*StepResult) // notified after each recorded step, nil = none

	index      map[string]int // step id → array position
	stepCounts StepsSummary
	result     *RunnerResult
}

// NewEngine creates an in-memory engine for executing a script. The script
// must already have passed validation; the engine assumes every referenced
// step id resolves. Initial variables merge over the script's declared vars.
func NewEngine(script *schema.Script, hooks Hooks, initialVars map[string]string) *Engine {
	vars := make(map[string]string)
	for k, v := range script.Vars {
		vars[k] = v
	}
	for k, v := range initialVars {
		vars[k] = v
	}

	index := make(map[string]int, len(script.Steps))
	for i := range script.Steps {
		index[script.Steps[i].ID] = i
	}

	return &Engine{
		Script:   script,
		Hooks:    hooks,
		MaxSteps: DefaultMaxSteps,
		State: &RunState{
			RunID:      GenerateRunID(),
			ScriptName: script.Name,
			StartedAt:  time.Now(),
			Vars:       vars,
			Answers:    make(map[string]string),
		},
		index: index,
	}
}

// NewEngineWithArtifacts creates an engine that writes a JSONL trace and
// per-step snapshots under .stepscript/runs/<run_id>/.
func NewEngineWithArtifacts(script *schema.Script, hooks Hooks, initialVars map[string]string) (*Engine, error) {
	e := NewEngine(script, hooks, initialVars)
	baseDir := filepath.Join(".stepscript", "runs", e.State.RunID)
	if err := os.MkdirAll(filepath.Join(baseDir, "snapshots"), 0755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	trace, err := NewTraceWriter(filepath.Join(baseDir, "trace.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("create trace writer: %w", err)
	}

	e.Trace = trace
	e.BaseDir = baseDir
	return e, nil
}

// Run executes the script from its start step to termination or a fatal
// error. Steps execute in declared array order; only a choice's selected
// branch or a goto deviate. The engine awaits one hook call at a time,
// never two concurrently within one run.
//
// Expected runtime outcomes (command failure, explicit failure/cancel end)
// are ordinary RunnerResult values. Configuration and script-author errors
// (missing hooks, budget exceeded, false assertions) propagate as errors.
func (e *Engine) Run(ctx context.Context) (*RunnerResult, error) {
	if e.Trace != nil {
		defer e.Trace.Close()
	}

	maxSteps := e.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	stepsRun := 0
	dispatched := 0

	i := e.Script.StartIndex()
	for i >= 0 && i < len(e.Script.Steps) {
		step := &e.Script.Steps[i]
		e.State.CurrentStepID = step.ID

		dispatched++
		if dispatched > maxSteps {
			return nil, &StepBudgetError{Limit: maxSteps, StepID: step.ID}
		}

		// A false when: guard skips the step entirely: no hook call,
		// no variable mutation, sequential fall-through.
		if step.When != "" {
			matched, err := e.evaluate(step.When, step.ID)
			if err != nil {
				return nil, fmt.Errorf("step %q when: %w", step.ID, err)
			}
			if !matched {
				e.logf("⊘ step %q skipped (when: %s → false)", step.ID, step.When)
				e.record(e.skipResult(i, step))
				i++
				continue
			}
		}

		e.logf("▶ step %d/%d: %s [%s]", i+1, len(e.Script.Steps), step.Description, step.ID)

		result := &StepResult{
			RunID:     e.State.RunID,
			StepID:    step.ID,
			StepIndex: i,
			Type:      step.Type,
			Status:    StepPassed,
			StartedAt: time.Now(),
		}

		next := i + 1 // default advance: declared array order

		switch step.Type {
		case schema.StepPrompt:
			if e.Hooks.Prompt == nil {
				return nil, &MissingHookError{Hook: "prompt", StepID: step.ID}
			}
			answer, err := e.Hooks.Prompt(ctx, step.Message, step.DefaultValue, e.runnerContext())
			if err != nil {
				return nil, fmt.Errorf("step %q prompt: %w", step.ID, err)
			}
			e.State.Vars[step.Variable] = answer
			e.State.Answers[step.ID] = answer
			result.Answer = answer

		case schema.StepChoice:
			if e.Hooks.Choose == nil {
				return nil, &MissingHookError{Hook: "choose", StepID: step.ID}
			}
			selected, err := e.Hooks.Choose(ctx, step.Message, step.Options, e.runnerContext())
			if err != nil {
				return nil, fmt.Errorf("step %q choice: %w", step.ID, err)
			}
			opt := matchOption(step.Options, selected)
			if opt == nil {
				return nil, fmt.Errorf("step %q choice: response %q matches no option", step.ID, selected)
			}
			e.State.Answers[step.ID] = selected
			result.Answer = selected
			target, ok := e.index[opt.Goto]
			if !ok {
				return nil, &StepNotFoundError{StepID: opt.Goto, From: step.ID}
			}
			next = target
			result.NextStepID = opt.Goto

		case schema.StepCommand:
			if e.Hooks.ExecCommand == nil {
				return nil, &MissingHookError{Hook: "execCommand", StepID: step.ID}
			}
			cmdResult, err := e.Hooks.ExecCommand(ctx, step.Command, step.Args, step.Cwd, e.runnerContext())
			failed := err != nil || cmdResult == nil || cmdResult.ExitCode != 0
			if failed && step.OnError != schema.OnErrorContinue {
				msg := ""
				switch {
				case err != nil:
					msg = err.Error()
				case cmdResult == nil:
					msg = "command produced no result"
				case cmdResult.Stderr != "":
					msg = cmdResult.Stderr
				default:
					msg = cmdResult.Stdout
				}
				result.Status = StepFailed
				result.Error = msg
				e.record(result)
				e.logf("✗ step %q failed: %s", step.ID, msg)
				return e.finish(StatusFailure, stepsRun+1, msg)
			}
			if failed {
				e.logf("⚠ step %q failed (onError: continue)", step.ID)
			}

		case schema.StepAssert:
			ok, err := e.evaluate(step.Expression, step.ID)
			if err != nil {
				return nil, fmt.Errorf("step %q assert: %w", step.ID, err)
			}
			if !ok {
				result.Status = StepFailed
				aerr := &AssertionError{StepID: step.ID, Expression: step.Expression, Message: step.Message}
				result.Error = aerr.Error()
				e.record(result)
				return nil, aerr
			}

		case schema.StepGoto:
			target, ok := e.index[step.Target]
			if !ok {
				return nil, &StepNotFoundError{StepID: step.Target, From: step.ID}
			}
			next = target
			result.NextStepID = step.Target

		case schema.StepEnd:
			status := step.Status
			if status == "" {
				status = schema.EndSuccess
			}
			e.record(result)
			e.logf("■ end [%s]: %s", step.ID, status)
			return e.finish(status, stepsRun+1, step.Message)

		default:
			// Unknown types are rejected by validation; defensive only.
			return nil, fmt.Errorf("step %q has unknown type %q", step.ID, step.Type)
		}

		stepsRun++
		e.record(result)
		i = next
	}

	// Falling off the end without an explicit end step is a success.
	return e.finish(StatusSuccess, stepsRun, "")
}

// finish builds the terminal RunnerResult, saves it on the engine, and
// writes the run manifest when artifacts are enabled.
func (e *Engine) finish(status string, stepsRun int, message string) (*RunnerResult, error) {
	e.result = &RunnerResult{
		Status:      status,
		StepsRun:    stepsRun,
		Vars:        e.State.Vars,
		LastMessage: message,
	}
	if e.BaseDir != "" {
		if err := e.WriteManifest(); err != nil {
			e.logf("warning: %v", err)
		}
	}
	return e.result, nil
}

// evaluate runs an expression through the Evaluate hook. Empty expressions
// never reach here; the guard check handles them.
func (e *Engine) evaluate(expression, stepID string) (bool, error) {
	if e.Hooks.Evaluate == nil {
		return false, &MissingHookError{Hook: "evaluate", StepID: stepID}
	}
	return e.Hooks.Evaluate(expression, e.runnerContext())
}

// matchOption resolves a choose response against the step's options: by
// option id first, then by goto target (hosts may return either).
func matchOption(options []schema.ChoiceOption, selected string) *schema.ChoiceOption {
	for i := range options {
		if options[i].ID == selected {
			return &options[i]
		}
	}
	for i := range options {
		if options[i].Goto == selected {
			return &options[i]
		}
	}
	return nil
}

func (e *Engine) runnerContext() *RunnerContext {
	return &RunnerContext{
		Vars:          e.State.Vars,
		CurrentStepID: e.State.CurrentStepID,
	}
}

func (e *Engine) skipResult(index int, step *schema.Step) *StepResult {
	now := time.Now()
	return &StepResult{
		RunID:     e.State.RunID,
		StepID:    step.ID,
		StepIndex: index,
		Type:      step.Type,
		Status:    StepSkipped,
		StartedAt: now,
		EndedAt:   now,
	}
}

// record appends a result to history, updates counters, and writes trace and
// snapshot artifacts when enabled.
func (e *Engine) record(result *StepResult) {
	if result.EndedAt.IsZero() {
		result.EndedAt = time.Now()
	}
	e.State.History = append(e.State.History, result)

	switch result.Status {
	case StepFailed:
		e.stepCounts.Failed++
	case StepSkipped:
		e.stepCounts.Skipped++
	default:
		e.stepCounts.Passed++
	}
	e.stepCounts.Total++

	if e.Observer != nil {
		e.Observer(result)
	}
	if e.Trace != nil {
		if err := e.Trace.Write(result); err != nil {
			e.logf("warning: write trace for step %q: %v", result.StepID, err)
		}
	}
	if e.BaseDir != "" {
		path := filepath.Join(e.BaseDir, "snapshots", fmt.Sprintf("step-%04d.json", e.stepCounts.Total-1))
		if err := SaveSnapshot(e.State, path); err != nil {
			e.logf("warning: save snapshot for step %q: %v", result.StepID, err)
		}
	}
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.Hooks.Log != nil {
		e.Hooks.Log(fmt.Sprintf(format, args...))
	}
}

// GetRunID returns the current run ID.
func (e *Engine) GetRunID() string {
	return e.State.RunID
}

// Result returns the terminal RunnerResult, or nil while the run is in
// flight or after a fatal error.
func (e *Engine) Result() *RunnerResult {
	return e.result
}

// Summary returns the step counters accumulated so far.
func (e *Engine) Summary() StepsSummary {
	return e.stepCounts
}

// BuildManifest produces a RunManifest from the current engine state.
func (e *Engine) BuildManifest() *RunManifest {
	m := &RunManifest{
		RunID:        e.State.RunID,
		Script:       e.State.ScriptName,
		StartedAt:    e.State.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:      time.Now().UTC().Format(time.RFC3339),
		VarsResolved: e.State.Vars,
		StepsSummary: e.stepCounts,
	}
	if e.result != nil {
		m.Status = e.result.Status
		m.LastMessage = e.result.LastMessage
	}
	return m
}

// WriteManifest writes run.yaml to the run artifacts directory.
func (e *Engine) WriteManifest() error {
	data, err := yaml.Marshal(e.BuildManifest())
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(e.BaseDir, "run.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
