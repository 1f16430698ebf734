package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

const demoScript = `{
	"name": "demo",
	"steps": [
		{"id": "s", "type": "prompt", "message": "Name?", "variable": "name"},
		{"id": "c", "type": "choice", "message": "Continue?",
		 "options": [{"id": "a", "label": "Yes", "goto": "e"}]},
		{"id": "e", "type": "end", "status": "success", "message": "done"}
	]
}`

func TestHandleValidate_MissingPath(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := HandleValidate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for missing path")
	}
}

func TestHandleValidate_ValidScript(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"path": writeScript(t, demoScript)}

	result, err := HandleValidate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Errorf("expected success for a valid script: %+v", result)
	}
}

func TestHandleValidate_BrokenGraph(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"path": writeScript(t, `{"steps": [{"id": "g", "type": "goto", "target": "nowhere"}]}`),
	}

	result, err := HandleValidate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for a dangling goto")
	}
}

func TestHandleDescribe(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"path": writeScript(t, demoScript)}

	result, err := HandleDescribe(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("expected success: %+v", result)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "# Walkthrough: demo") {
		t.Errorf("describe output missing walkthrough header: %q", text)
	}
}

func TestHandleSchema(t *testing.T) {
	result, err := HandleSchema(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Error("expected success for schema export")
	}
	if len(result.Content) == 0 {
		t.Fatal("expected schema content")
	}
}

// TestHandleRun_SeededAnswers runs a script to completion entirely from the
// answers argument.
func TestHandleRun_SeededAnswers(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"path":    writeScript(t, demoScript),
		"answers": map[string]any{"s": "alice", "c": "a"},
	}

	result, err := HandleRun(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("expected success: %+v", result)
	}

	var response map[string]any
	text := result.Content[0].(mcp.TextContent).Text
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if response["status"] != "success" {
		t.Errorf("status = %v, want success", response["status"])
	}
	if response["steps_run"] != float64(3) {
		t.Errorf("steps_run = %v, want 3", response["steps_run"])
	}
	vars := response["vars"].(map[string]any)
	if vars["name"] != "alice" {
		t.Errorf("vars = %v, want name=alice", vars)
	}
}

// TestHandleRun_UnseededPromptFails verifies a prompt with no recorded
// answer fails instead of blocking.
func TestHandleRun_UnseededPromptFails(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"path": writeScript(t, demoScript)}

	result, err := HandleRun(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for an unanswered prompt")
	}
}

// TestHandleRun_DryRunCommands verifies commands are not executed unless
// execute is set.
func TestHandleRun_DryRunCommands(t *testing.T) {
	script := `{
		"steps": [
			{"id": "x", "type": "command", "command": "definitely-not-a-command-xyz"},
			{"id": "e", "type": "end", "status": "success"}
		]
	}`
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"path": writeScript(t, script)}

	result, err := HandleRun(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("dry-run should not execute the command: %+v", result)
	}
}
