package runtime

import "fmt"

// MissingHookError reports that a step type's required hook was not supplied.
// A host-misconfiguration signal, not a user-facing run failure.
type MissingHookError struct {
	Hook   string // prompt, choose, execCommand, evaluate
	StepID string
}

func (e *MissingHookError) Error() string {
	return fmt.Sprintf("step %q requires the %s hook, which was not supplied", e.StepID, e.Hook)
}

// StepNotFoundError reports a jump target that cannot be resolved at
// dispatch. Defensive: should not occur for a validated script.
type StepNotFoundError struct {
	StepID string // the unresolvable target
	From   string // the step that jumped
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("step %q jumps to unknown step %q", e.From, e.StepID)
}

// AssertionError reports a false assert expression. Signals a script-author
// correctness bug and propagates rather than becoming a soft failure.
type AssertionError struct {
	StepID     string
	Expression string
	Message    string
}

func (e *AssertionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Assertion failed: %s", e.Expression)
}

// StepBudgetError reports that the per-run step ceiling was exceeded.
// The engine's only cycle defense: goto/choice cycles are otherwise legal.
type StepBudgetError struct {
	Limit  int
	StepID string // the step being dispatched when the budget ran out
}

func (e *StepBudgetError) Error() string {
	return fmt.Sprintf("step budget of %d exceeded at step %q (cyclic script?)", e.Limit, e.StepID)
}
