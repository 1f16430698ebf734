// Package schema defines the Go struct types for step scripts and provides
// strict JSON/YAML parsing.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step types dispatched by the runtime engine.
const (
	StepPrompt  = "prompt"
	StepChoice  = "choice"
	StepCommand = "command"
	StepAssert  = "assert"
	StepGoto    = "goto"
	StepEnd     = "end"
)

// End statuses. EndSuccess is the default when status is omitted.
const (
	EndSuccess = "success"
	EndFailure = "failure"
	EndCancel  = "cancel"
)

// OnError policies for command steps. OnErrorFail is the default.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// Script is the top-level document defining a guided walkthrough.
// Steps execute in declared order unless a choice or goto jumps elsewhere.
type Script struct {
	Name    string            `json:"name,omitempty"    yaml:"name,omitempty"`
	Version string            `json:"version,omitempty" yaml:"version,omitempty"`
	Start   string            `json:"start,omitempty"   yaml:"start,omitempty"`
	Vars    map[string]string `json:"vars,omitempty"    yaml:"vars,omitempty"`
	Steps   []Step            `json:"steps"             yaml:"steps" jsonschema:"required,minItems=1"`
}

// Step is a single unit of script behavior. The Type discriminant selects
// which payload fields apply; the validator enforces per-type requirements.
type Step struct {
	ID          string `json:"id"                    yaml:"id"   jsonschema:"required"`
	Type        string `json:"type"                  yaml:"type" jsonschema:"required,enum=prompt,enum=choice,enum=command,enum=assert,enum=goto,enum=end"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	When        string `json:"when,omitempty"        yaml:"when,omitempty"`

	// prompt / choice / assert / end
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// prompt
	Variable     string `json:"variable,omitempty"     yaml:"variable,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty" yaml:"default_value,omitempty"`

	// choice
	Options []ChoiceOption `json:"options,omitempty" yaml:"options,omitempty"`

	// command
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty"    yaml:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"     yaml:"cwd,omitempty"`
	OnError string   `json:"onError,omitempty" yaml:"on_error,omitempty" jsonschema:"enum=fail,enum=continue"`

	// assert
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`

	// goto
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// end
	Status string `json:"status,omitempty" yaml:"status,omitempty" jsonschema:"enum=success,enum=failure,enum=cancel"`
}

// ChoiceOption is a single selectable option in a choice step. Goto names the
// step that becomes current when this option is selected.
type ChoiceOption struct {
	ID    string `json:"id"              yaml:"id"   jsonschema:"required"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Goto  string `json:"goto"            yaml:"goto" jsonschema:"required"`
}

// LoadFile reads and parses a script file. The format is chosen by
// extension: .json decodes as strict JSON, anything else as strict YAML.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return Load(f)
	}
	return LoadYAML(f)
}

// Load parses a script from JSON with unknown-field rejection. JSON is the
// canonical wire format consumed by hosts.
func Load(r io.Reader) (*Script, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	return &s, nil
}

// LoadBytes parses a script from raw JSON bytes.
func LoadBytes(data []byte) (*Script, error) {
	return Load(bytes.NewReader(data))
}

// LoadYAML parses a script from YAML with strict unknown-field rejection.
// YAML is the authoring convenience format; it maps 1:1 onto the JSON shape.
func LoadYAML(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	return &s, nil
}

// StepByID returns the step with the given id, or nil.
func (s *Script) StepByID(id string) *Step {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i]
		}
	}
	return nil
}

// StartIndex returns the index of the step execution begins at: the declared
// start step if present, otherwise the first array element.
func (s *Script) StartIndex() int {
	if s.Start == "" {
		return 0
	}
	for i := range s.Steps {
		if s.Steps[i].ID == s.Start {
			return i
		}
	}
	return 0
}
