package store

import (
	"testing"
	"time"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// TestSaveLoadRoundTrip verifies saved state reads back intact.
func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	saved := &SavedRunState{
		ScriptID:    "deploy-check",
		GraphHash:   "abc123",
		Answers:     map[string]string{"s": "alice"},
		Vars:        map[string]string{"name": "alice"},
		LastStatus:  "success",
		LastMessage: "done",
		UpdatedAt:   time.Now().UTC(),
	}
	if err := st.Save(saved); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := st.Load("deploy-check")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded == nil {
		t.Fatalf("Load returned nil for saved state")
	}
	if loaded.GraphHash != "abc123" || loaded.Answers["s"] != "alice" || loaded.LastStatus != "success" {
		t.Errorf("loaded = %+v, want saved values back", loaded)
	}
}

// TestLoadMissingReturnsNil verifies absent state is (nil, nil), not an error.
func TestLoadMissingReturnsNil(t *testing.T) {
	st := New(t.TempDir())
	loaded, err := st.Load("never-saved")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %+v, want nil", loaded)
	}
}

// TestClear verifies restart semantics: clearing removes state and clearing
// twice is harmless.
func TestClear(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Save(&SavedRunState{ScriptID: "x", LastStatus: "failure"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := st.Clear("x"); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if loaded, _ := st.Load("x"); loaded != nil {
		t.Errorf("state survived Clear: %+v", loaded)
	}
	if err := st.Clear("x"); err != nil {
		t.Errorf("second Clear error: %v", err)
	}
}

// TestSaveRejectsEmptyID verifies a script id is required.
func TestSaveRejectsEmptyID(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Save(&SavedRunState{}); err == nil {
		t.Errorf("Save accepted an empty script id")
	}
}

// TestSanitize verifies ids with path-hostile characters map to safe names.
func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"deploy-check":   "deploy-check",
		"a/b\\c":         "a_b_c",
		"spaces here":    "spaces_here",
		"v1.2_release-x": "v1.2_release-x",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestGraphHashStability verifies the hash ignores cosmetic edits but moves
// when the step graph changes.
func TestGraphHashStability(t *testing.T) {
	base := func() *schema.Script {
		return &schema.Script{
			Name: "demo",
			Steps: []schema.Step{
				{ID: "s", Type: schema.StepPrompt, Message: "Name?", Variable: "name"},
				{ID: "c", Type: schema.StepChoice, Message: "Go?", Options: []schema.ChoiceOption{
					{ID: "a", Label: "Yes", Goto: "e"},
				}},
				{ID: "e", Type: schema.StepEnd, Status: schema.EndSuccess},
			},
		}
	}

	h1 := GraphHash(base())

	cosmetic := base()
	cosmetic.Steps[0].Message = "What is your name?"
	cosmetic.Steps[1].Options[0].Label = "Yes please"
	if GraphHash(cosmetic) != h1 {
		t.Errorf("hash moved for a message/label edit")
	}

	retargeted := base()
	retargeted.Steps[1].Options[0].Goto = "c"
	if GraphHash(retargeted) == h1 {
		t.Errorf("hash unchanged after retargeting an option")
	}

	renamed := base()
	renamed.Steps[0].ID = "ask"
	if GraphHash(renamed) == h1 {
		t.Errorf("hash unchanged after renaming a step")
	}
}

// TestSnapshotCapturesRunState verifies the host-side snapshot carries
// answers, vars and outcome.
func TestSnapshotCapturesRunState(t *testing.T) {
	script := &schema.Script{
		Name:  "demo",
		Steps: []schema.Step{{ID: "e", Type: schema.StepEnd}},
	}
	state := &engine.RunState{
		Answers: map[string]string{"s": "alice"},
		Vars:    map[string]string{"name": "alice"},
	}

	snap := Snapshot("demo", script, state, "failure", "command exited 3")
	if snap.ScriptID != "demo" || snap.LastStatus != "failure" || snap.LastMessage != "command exited 3" {
		t.Errorf("snapshot = %+v, want outcome captured", snap)
	}
	if snap.GraphHash != GraphHash(script) {
		t.Errorf("snapshot hash does not match script graph")
	}
	if snap.Answers["s"] != "alice" {
		t.Errorf("snapshot lost answers: %+v", snap.Answers)
	}
}
