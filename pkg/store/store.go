// Package store persists run state between runs, keyed by script id. The
// engine itself is stateless between runs; hosts snapshot answers, vars and
// status here after every run and read them back to resume.
package store

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// DefaultDir is where run state lives unless a store is given another root.
const DefaultDir = ".stepscript/state"

// SavedRunState is the persisted snapshot of one script's last run. Answers
// map step ids to the raw responses given, enabling resume without
// re-asking. GraphHash pins the step graph the answers were recorded
// against; resume is only valid while it is unchanged.
type SavedRunState struct {
	ScriptID    string            `json:"script_id"`
	GraphHash   string            `json:"graph_hash"`
	Answers     map[string]string `json:"answers"`
	Vars        map[string]string `json:"vars"`
	LastStatus  string            `json:"last_status"`
	LastMessage string            `json:"last_message,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Store reads and writes SavedRunState files under a root directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir ("" = DefaultDir).
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Save writes (or overwrites) the state for its script id.
func (s *Store) Save(state *SavedRunState) error {
	if state.ScriptID == "" {
		return fmt.Errorf("save run state: empty script id")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	if err := os.WriteFile(s.path(state.ScriptID), data, 0644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	return nil
}

// Load returns the saved state for a script id, or nil when none exists.
func (s *Store) Load(scriptID string) (*SavedRunState, error) {
	data, err := os.ReadFile(s.path(scriptID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run state: %w", err)
	}
	var state SavedRunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	return &state, nil
}

// Clear removes the saved state for a script id ("restart" semantics).
// Clearing absent state is not an error.
func (s *Store) Clear(scriptID string) error {
	err := os.Remove(s.path(scriptID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear run state: %w", err)
	}
	return nil
}

func (s *Store) path(scriptID string) string {
	return filepath.Join(s.dir, sanitize(scriptID)+".json")
}

// sanitize maps a script id to a safe file name.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// Snapshot builds a SavedRunState from a finished (or aborted) run. Written
// after every run regardless of status.
func Snapshot(scriptID string, script *schema.Script, state *engine.RunState, status, message string) *SavedRunState {
	return &SavedRunState{
		ScriptID:    scriptID,
		GraphHash:   GraphHash(script),
		Answers:     state.Answers,
		Vars:        state.Vars,
		LastStatus:  status,
		LastMessage: message,
		UpdatedAt:   time.Now().UTC(),
	}
}

// GraphHash fingerprints the parts of a script that answers depend on: step
// ids, types, jump targets and option ids, in declared order. Descriptions
// and messages may change without invalidating recorded answers.
func GraphHash(script *schema.Script) string {
	h := sha256.New()
	fmt.Fprintf(h, "start=%s\n", script.Start)
	for _, st := range script.Steps {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s\n", st.ID, st.Type, st.Variable, st.Target, st.When)
		for _, opt := range st.Options {
			fmt.Fprintf(h, "  %s>%s\n", opt.ID, opt.Goto)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
