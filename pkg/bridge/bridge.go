// Package bridge mediates between the interpreter's blocking hook calls and
// an external, event-driven interactive surface. Each waiting prompt or
// choice registers a one-shot resolver keyed by step id; a later inbound
// event tagged with that step id settles it and resumes the run.
package bridge

import (
	"context"
	"fmt"
	"sync"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// Request kinds emitted to the surface.
const (
	KindPrompt = "prompt"
	KindChoice = "choice"
)

// PendingRequest describes a prompt or choice awaiting an external answer.
type PendingRequest struct {
	StepID       string                `json:"step_id"`
	Kind         string                `json:"kind"` // prompt, choice
	Message      string                `json:"message"`
	DefaultValue string                `json:"default_value,omitempty"`
	Options      []schema.ChoiceOption `json:"options,omitempty"`
}

// Bridge owns the pending-resolver map for a single run. Because the
// interpreter awaits one hook call at a time, at most one resolver is
// pending; events for any other step id are stale or duplicated and are
// silently ignored. Create one bridge per run; resolver state must never
// be shared across concurrent runs.
type Bridge struct {
	mu       sync.Mutex
	pending  map[string]chan string
	requests chan PendingRequest
}

// New creates a bridge. The requests channel is buffered so the interpreter
// never blocks on emitting a pending description.
func New() *Bridge {
	return &Bridge{
		pending:  make(map[string]chan string),
		requests: make(chan PendingRequest, 1),
	}
}

// Requests returns the channel on which pending prompt/choice descriptions
// are emitted for the interactive surface to render.
func (b *Bridge) Requests() <-chan PendingRequest {
	return b.requests
}

// Bind returns a copy of base with Prompt and Choose routed through the
// bridge. The remaining hooks (ExecCommand, Evaluate, Log) pass through.
func (b *Bridge) Bind(base engine.Hooks) engine.Hooks {
	base.Prompt = b.Prompt
	base.Choose = b.Choose
	return base
}

// Prompt implements the prompt hook: it parks the run until Resolve is
// called with the current step id, or ctx is cancelled.
func (b *Bridge) Prompt(ctx context.Context, message, defaultValue string, rc *engine.RunnerContext) (string, error) {
	return b.await(ctx, PendingRequest{
		StepID:       rc.CurrentStepID,
		Kind:         KindPrompt,
		Message:      message,
		DefaultValue: defaultValue,
	})
}

// Choose implements the choose hook, analogous to Prompt.
func (b *Bridge) Choose(ctx context.Context, message string, options []schema.ChoiceOption, rc *engine.RunnerContext) (string, error) {
	return b.await(ctx, PendingRequest{
		StepID:  rc.CurrentStepID,
		Kind:    KindChoice,
		Message: message,
		Options: options,
	})
}

// Resolve settles the resolver pending under stepID with the given answer.
// Returns false when no resolver is waiting for that step id: stale,
// duplicate, or out-of-order events are dropped rather than raising.
func (b *Bridge) Resolve(stepID, answer string) bool {
	b.mu.Lock()
	ch, ok := b.pending[stepID]
	if ok {
		delete(b.pending, stepID)
	}
	b.mu.Unlock()
	if !ok {
		return false
	}
	ch <- answer // one-shot, buffered
	return true
}

// Pending returns the step id currently awaiting an answer, or "".
func (b *Bridge) Pending() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.pending {
		return id
	}
	return ""
}

func (b *Bridge) await(ctx context.Context, req PendingRequest) (string, error) {
	ch := make(chan string, 1)

	b.mu.Lock()
	if _, exists := b.pending[req.StepID]; exists {
		b.mu.Unlock()
		return "", fmt.Errorf("step %q already has a pending resolver", req.StepID)
	}
	b.pending[req.StepID] = ch
	b.mu.Unlock()

	// Describe the pending request to the surface after the resolver is
	// registered, so an immediate response always finds it.
	b.requests <- req

	select {
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, req.StepID)
		b.mu.Unlock()
		return "", ctx.Err()
	case answer := <-ch:
		return answer, nil
	}
}
