// Package mcpserver exposes stepscript to AI agents over MCP: validation,
// schema export, walkthrough description, and non-interactive runs with
// pre-seeded answers.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with stepscript tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"stepscript",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("stepscript/validate",
			mcp.WithDescription("Validate a step script file (JSON or YAML)"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the script file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("stepscript/describe",
			mcp.WithDescription("Generate a Markdown walkthrough for a step script (static analysis, no execution)"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the script file")),
		),
		HandleDescribe,
	)

	s.AddTool(
		mcp.NewTool("stepscript/schema",
			mcp.WithDescription("Export the step script JSON Schema (Draft 2020-12)"),
		),
		HandleSchema,
	)

	s.AddTool(
		mcp.NewTool("stepscript/run",
			mcp.WithDescription("Run a step script non-interactively. Prompt and choice answers must be pre-seeded; commands execute only when execute=true (defaults to a safe dry-run)"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the script file")),
			mcp.WithObject("answers", mcp.Description("Map of step id → answer for prompt/choice steps")),
			mcp.WithObject("vars", mcp.Description("Initial variables (name → value)")),
			mcp.WithBoolean("execute", mcp.Description("Actually execute command steps (default false: commands are dry-run successes)")),
		),
		HandleRun,
	)

	return s
}
