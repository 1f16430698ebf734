package runtime

import (
	"context"

	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// Hooks is the set of host-supplied functions implementing side effects the
// interpreter calls but does not implement. Each run gets its own Hooks
// value; concurrent runs must not share resolver state behind them.
//
// Prompt and Choose block until the host settles them, indefinitely for an
// interactive surface. The caller cancels by cancelling ctx. Evaluate may be
// called synchronously for when: guards and assert expressions. Log is
// optional; nil means engine progress messages are discarded.
type Hooks struct {
	Prompt      func(ctx context.Context, message, defaultValue string, rc *RunnerContext) (string, error)
	Choose      func(ctx context.Context, message string, options []schema.ChoiceOption, rc *RunnerContext) (string, error)
	ExecCommand func(ctx context.Context, command string, args []string, cwd string, rc *RunnerContext) (*CommandResult, error)
	Evaluate    func(expression string, rc *RunnerContext) (bool, error)
	Log         func(message string)
}
