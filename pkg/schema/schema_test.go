package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// TestLoadStrictJSON verifies unknown fields are rejected at decode time.
func TestLoadStrictJSON(t *testing.T) {
	_, err := LoadBytes([]byte(`{"steps": [], "extra": 1}`))
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Errorf("err = %v, want unknown field rejection", err)
	}
}

// TestLoadYAMLStrict verifies KnownFields rejects unrecognized YAML keys.
func TestLoadYAMLStrict(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("steps: []\nsurprise: true\n"))
	if err == nil {
		t.Errorf("expected unknown-field error for strict YAML decode")
	}
}

// TestLoadFileByExtension verifies JSON and YAML files parse to the same
// script shape.
func TestLoadFileByExtension(t *testing.T) {
	jsonPath := writeTempScript(t, "s.json", `{
		"name": "demo",
		"steps": [
			{"id": "ask", "type": "prompt", "message": "Name?", "variable": "name", "defaultValue": "guest"}
		]
	}`)
	yamlPath := writeTempScript(t, "s.yaml", `
name: demo
steps:
  - id: ask
    type: prompt
    message: "Name?"
    variable: name
    default_value: guest
`)

	fromJSON, err := LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFile(json) error: %v", err)
	}
	fromYAML, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFile(yaml) error: %v", err)
	}

	if fromJSON.Steps[0].DefaultValue != "guest" || fromYAML.Steps[0].DefaultValue != "guest" {
		t.Errorf("defaultValue: json %q yaml %q, want guest for both",
			fromJSON.Steps[0].DefaultValue, fromYAML.Steps[0].DefaultValue)
	}
	if fromJSON.Name != fromYAML.Name {
		t.Errorf("name mismatch: json %q yaml %q", fromJSON.Name, fromYAML.Name)
	}
}

// TestStepByID covers lookup hits and misses.
func TestStepByID(t *testing.T) {
	s := &Script{Steps: []Step{
		{ID: "a", Type: StepEnd},
		{ID: "b", Type: StepEnd},
	}}
	if st := s.StepByID("b"); st == nil || st.ID != "b" {
		t.Errorf("StepByID(b) = %+v, want step b", st)
	}
	if st := s.StepByID("zzz"); st != nil {
		t.Errorf("StepByID(zzz) = %+v, want nil", st)
	}
}

// TestStartIndex verifies the start pointer resolves, defaulting to the
// first element when absent.
func TestStartIndex(t *testing.T) {
	s := &Script{Steps: []Step{
		{ID: "a", Type: StepEnd},
		{ID: "b", Type: StepEnd},
	}}
	if i := s.StartIndex(); i != 0 {
		t.Errorf("StartIndex() = %d, want 0 with no start", i)
	}
	s.Start = "b"
	if i := s.StartIndex(); i != 1 {
		t.Errorf("StartIndex() = %d, want 1 for start=b", i)
	}
}

// TestGenerateJSONSchema sanity-checks the exported schema document.
func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatalf("GenerateJSONSchema error: %v", err)
	}
	doc := string(data)
	for _, want := range []string{`"steps"`, `"prompt"`, `"choice"`, `"goto"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("schema missing %s", want)
		}
	}
}
