package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ormasoftchile/stepscript/pkg/bridge"
	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

func testScript() *schema.Script {
	return &schema.Script{
		Name: "demo",
		Steps: []schema.Step{
			{ID: "s", Type: schema.StepPrompt, Message: "Name?", Variable: "name"},
			{ID: "c", Type: schema.StepChoice, Message: "Continue?", Options: []schema.ChoiceOption{
				{ID: "a", Label: "Yes", Goto: "e"},
			}},
			{ID: "e", Type: schema.StepEnd, Status: schema.EndSuccess},
		},
	}
}

func testModel(script *schema.Script, br *bridge.Bridge) model {
	return newModel(script, br, make(chan *engine.StepResult), make(chan doneMsg), func() {})
}

// TestModelInitFromScript verifies the view lists every step as pending.
func TestModelInitFromScript(t *testing.T) {
	m := testModel(testScript(), bridge.New())
	view := m.View()

	for _, id := range []string{"s", "c", "e"} {
		if !strings.Contains(view, id) {
			t.Errorf("view missing step %q", id)
		}
	}
	if !strings.Contains(view, GlyphPending) {
		t.Errorf("view has no pending glyphs")
	}
}

// TestModelTracksStepStatus verifies step results recolor the step list.
func TestModelTracksStepStatus(t *testing.T) {
	m := testModel(testScript(), bridge.New())

	out, _ := m.Update(stepMsg(&engine.StepResult{StepID: "s", Status: engine.StepPassed}))
	m = out.(model)
	if m.statuses["s"] != engine.StepPassed {
		t.Errorf("statuses[s] = %q, want passed", m.statuses["s"])
	}

	view := m.View()
	if !strings.Contains(view, GlyphPassed) {
		t.Errorf("view has no passed glyph after a step result")
	}
}

// TestModelPromptAnswerResolvesBridge verifies typed input settles the
// pending resolver on enter.
func TestModelPromptAnswerResolvesBridge(t *testing.T) {
	br := bridge.New()
	m := testModel(testScript(), br)

	answered := make(chan string, 1)
	go func() {
		answer, err := br.Prompt(context.Background(), "Name?", "", &engine.RunnerContext{CurrentStepID: "s"})
		if err != nil {
			t.Errorf("Prompt error: %v", err)
		}
		answered <- answer
	}()
	req := <-br.Requests()

	out, _ := m.Update(pendingMsg(req))
	m = out.(model)
	if m.pending == nil || m.pending.StepID != "s" {
		t.Fatalf("pending = %+v, want prompt for s", m.pending)
	}

	m.input.SetValue("alice")
	out, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = out.(model)

	select {
	case answer := <-answered:
		if answer != "alice" {
			t.Errorf("answer = %q, want alice", answer)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("prompt did not settle from the UI")
	}
	if m.pending != nil {
		t.Errorf("pending not cleared after answering")
	}
}

// TestModelChoiceNavigation verifies cursor movement and selection.
func TestModelChoiceNavigation(t *testing.T) {
	br := bridge.New()
	m := testModel(testScript(), br)

	options := []schema.ChoiceOption{
		{ID: "a", Label: "Yes", Goto: "e"},
		{ID: "b", Label: "No", Goto: "e"},
	}
	answered := make(chan string, 1)
	go func() {
		answer, err := br.Choose(context.Background(), "Continue?", options, &engine.RunnerContext{CurrentStepID: "c"})
		if err != nil {
			t.Errorf("Choose error: %v", err)
		}
		answered <- answer
	}()
	req := <-br.Requests()

	out, _ := m.Update(pendingMsg(req))
	m = out.(model)

	out, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = out.(model)
	if m.cursor != 1 {
		t.Errorf("cursor = %d after down, want 1", m.cursor)
	}

	out, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = out.(model)

	select {
	case answer := <-answered:
		if answer != "b" {
			t.Errorf("answer = %q, want b", answer)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("choice did not settle from the UI")
	}
}

// TestAbandonedRunReleasesEngine verifies the engine goroutine still exits
// when the surface stops consuming step results: wait drains the channel so
// a blocked Observer send cannot strand the run.
func TestAbandonedRunReleasesEngine(t *testing.T) {
	script := &schema.Script{
		Name: "cycle",
		Steps: []schema.Step{
			{ID: "a", Type: schema.StepGoto, Target: "b"},
			{ID: "b", Type: schema.StepGoto, Target: "a"},
		},
	}
	eng := engine.NewEngine(script, engine.Hooks{}, nil)
	// Record more steps than the channel buffers so the engine blocks once
	// nothing drains it.
	eng.MaxSteps = 500

	ctx, cancel := context.WithCancel(context.Background())
	er := startEngineRun(ctx, eng)

	// Abandoned surface: consume nothing, just wait for the outcome.
	outcome := make(chan error, 1)
	go func() {
		_, err := er.wait(cancel)
		outcome <- err
	}()

	select {
	case err := <-outcome:
		var budgetErr *engine.StepBudgetError
		if !errors.As(err, &budgetErr) {
			t.Errorf("err = %v, want StepBudgetError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("engine goroutine did not exit after the surface was abandoned")
	}
}

// TestModelFinishedView verifies the terminal result line renders.
func TestModelFinishedView(t *testing.T) {
	m := testModel(testScript(), bridge.New())
	out, _ := m.Update(doneMsg{result: &engine.RunnerResult{Status: engine.StatusSuccess, LastMessage: "done"}})
	m = out.(model)

	view := m.View()
	if !strings.Contains(view, "success") || !strings.Contains(view, "done") {
		t.Errorf("finished view missing result line: %q", view)
	}
}
