// Package replay implements resume mode: hooks that serve previously
// recorded answers without a round-trip to the interactive surface.
package replay

import (
	"context"
	"fmt"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
	"github.com/ormasoftchile/stepscript/pkg/store"
)

// Resumable reports whether saved state may seed a new run of script.
// Answers are only valid while the script's step graph is unchanged.
func Resumable(saved *store.SavedRunState, script *schema.Script) error {
	if saved == nil {
		return fmt.Errorf("no saved run state")
	}
	if saved.GraphHash != store.GraphHash(script) {
		return fmt.Errorf("script %q changed since the saved run; restart instead of resuming", saved.ScriptID)
	}
	return nil
}

// WrapHooks returns a hook set where prompt and choose answer immediately
// from saved answers when the current step id is seeded, and fall through to
// the inner hooks otherwise. Seeded steps never reach the inner hooks.
func WrapHooks(inner engine.Hooks, answers map[string]string) engine.Hooks {
	innerPrompt := inner.Prompt
	innerChoose := inner.Choose

	out := inner
	out.Prompt = func(ctx context.Context, message, defaultValue string, rc *engine.RunnerContext) (string, error) {
		if answer, ok := answers[rc.CurrentStepID]; ok {
			return answer, nil
		}
		if innerPrompt == nil {
			return "", fmt.Errorf("step %q has no recorded answer and no prompt hook", rc.CurrentStepID)
		}
		return innerPrompt(ctx, message, defaultValue, rc)
	}
	out.Choose = func(ctx context.Context, message string, options []schema.ChoiceOption, rc *engine.RunnerContext) (string, error) {
		if answer, ok := answers[rc.CurrentStepID]; ok {
			return answer, nil
		}
		if innerChoose == nil {
			return "", fmt.Errorf("step %q has no recorded answer and no choose hook", rc.CurrentStepID)
		}
		return innerChoose(ctx, message, options, rc)
	}
	return out
}
