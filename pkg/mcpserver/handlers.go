package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/stepscript/pkg/describe"
	"github.com/ormasoftchile/stepscript/pkg/providers"
	"github.com/ormasoftchile/stepscript/pkg/replay"
	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// HandleValidate implements the stepscript/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	s, errs := schema.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}
	name := path
	if s.Name != "" {
		name = s.Name
	}
	return textResult(fmt.Sprintf("✓ %s is valid (%d steps)", name, len(s.Steps))), nil
}

// HandleDescribe implements the stepscript/describe MCP tool.
func HandleDescribe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	s, errs := schema.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}
	return textResult(describe.Markdown(s)), nil
}

// HandleSchema implements the stepscript/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := schema.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleRun implements the stepscript/run MCP tool. Interactive steps are
// served from the answers argument; an unseeded prompt or choice fails the
// run rather than hanging an agent on input that will never arrive.
func HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	s, errs := schema.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}

	answers := stringMap(args["answers"])
	vars := stringMap(args["vars"])
	execute, _ := args["execute"].(bool)

	hooks := engine.Hooks{
		Evaluate: providers.EvaluateHook(),
	}
	if execute {
		hooks.ExecCommand = providers.ExecCommandHook()
	} else {
		hooks.ExecCommand = dryRunExecCommand
	}
	hooks = replay.WrapHooks(hooks, answers)

	eng := engine.NewEngine(s, hooks, vars)
	result, err := eng.Run(ctx)

	response := map[string]any{
		"execute": execute,
	}
	if result != nil {
		response["status"] = result.Status
		response["steps_run"] = result.StepsRun
		response["vars"] = result.Vars
		if result.LastMessage != "" {
			response["last_message"] = result.LastMessage
		}
	}
	if err != nil {
		response["error"] = err.Error()
	}

	data, _ := json.MarshalIndent(response, "", "  ")
	isErr := err != nil || (result != nil && result.Status != engine.StatusSuccess)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}, nil
}

// dryRunExecCommand reports success without executing anything.
func dryRunExecCommand(ctx context.Context, command string, args []string, cwd string, rc *engine.RunnerContext) (*engine.CommandResult, error) {
	return &engine.CommandResult{
		ExitCode: 0,
		Stdout:   fmt.Sprintf("<dry-run> %s %s", command, strings.Join(args, " ")),
	}, nil
}

func stringMap(raw any) map[string]string {
	out := make(map[string]string)
	if m, ok := raw.(map[string]any); ok {
		for k, v := range m {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func hasErrors(errs []*schema.ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

func formatErrors(errs []*schema.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == "error" {
			msgs = append(msgs, fmt.Sprintf("[%s] %s", e.Phase, e.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
		IsError: true,
	}
}
