// Package describe produces a static Markdown walkthrough of a script:
// step-by-step details, jump analysis, and a summary. No execution occurs.
package describe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// stats holds counters accumulated while walking the script.
type stats struct {
	prompts   int
	choices   int
	commands  int
	asserts   int
	gotos     int
	ends      int
	jumps     int
	variables map[string]string // variable → binding step id
}

// Markdown renders the walkthrough document for a validated script.
func Markdown(s *schema.Script) string {
	st := &stats{variables: make(map[string]string)}
	var sb strings.Builder

	title := s.Name
	if title == "" {
		title = "step script"
	}
	fmt.Fprintf(&sb, "# Walkthrough: %s\n\n", title)
	if s.Version != "" {
		fmt.Fprintf(&sb, "Version: %s\n\n", s.Version)
	}
	if s.Start != "" {
		fmt.Fprintf(&sb, "Execution begins at step `%s`.\n\n", s.Start)
	}

	sb.WriteString("## Steps\n\n")
	for i := range s.Steps {
		writeStep(&sb, i, &s.Steps[i], st)
	}

	writeJumpAnalysis(&sb, s, st)
	writeSummary(&sb, s, st)

	return sb.String()
}

func writeStep(sb *strings.Builder, index int, step *schema.Step, st *stats) {
	fmt.Fprintf(sb, "### %d. `%s` (%s)\n\n", index+1, step.ID, step.Type)
	if step.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", step.Description)
	}
	if step.When != "" {
		fmt.Fprintf(sb, "- Runs only when: `%s`\n", step.When)
	}

	switch step.Type {
	case schema.StepPrompt:
		st.prompts++
		st.variables[step.Variable] = step.ID
		fmt.Fprintf(sb, "- Asks: %s\n", step.Message)
		fmt.Fprintf(sb, "- Binds variable: `%s`\n", step.Variable)
		if step.DefaultValue != "" {
			fmt.Fprintf(sb, "- Default: `%s`\n", step.DefaultValue)
		}
	case schema.StepChoice:
		st.choices++
		st.jumps += len(step.Options)
		fmt.Fprintf(sb, "- Asks: %s\n", step.Message)
		for _, opt := range step.Options {
			label := opt.Label
			if label == "" {
				label = opt.ID
			}
			fmt.Fprintf(sb, "- Option `%s` (%s) → step `%s`\n", opt.ID, label, opt.Goto)
		}
	case schema.StepCommand:
		st.commands++
		cmd := step.Command
		if len(step.Args) > 0 {
			cmd += " " + strings.Join(step.Args, " ")
		}
		fmt.Fprintf(sb, "- Executes: `%s`\n", cmd)
		if step.Cwd != "" {
			fmt.Fprintf(sb, "- Working directory: `%s`\n", step.Cwd)
		}
		if step.OnError == schema.OnErrorContinue {
			sb.WriteString("- Failures are tolerated (onError: continue)\n")
		} else {
			sb.WriteString("- A non-zero exit ends the run as a failure\n")
		}
	case schema.StepAssert:
		st.asserts++
		fmt.Fprintf(sb, "- Asserts: `%s`\n", step.Expression)
		if step.Message != "" {
			fmt.Fprintf(sb, "- On failure: %s\n", step.Message)
		}
	case schema.StepGoto:
		st.gotos++
		st.jumps++
		fmt.Fprintf(sb, "- Jumps to step `%s`\n", step.Target)
	case schema.StepEnd:
		st.ends++
		status := step.Status
		if status == "" {
			status = schema.EndSuccess
		}
		fmt.Fprintf(sb, "- Terminates the run: **%s**\n", status)
		if step.Message != "" {
			fmt.Fprintf(sb, "- Final message: %s\n", step.Message)
		}
	}
	sb.WriteString("\n")
}

// writeJumpAnalysis lists every non-sequential edge in the step graph.
func writeJumpAnalysis(sb *strings.Builder, s *schema.Script, st *stats) {
	if st.jumps == 0 {
		return
	}
	sb.WriteString("## Jumps\n\n")
	for i := range s.Steps {
		step := &s.Steps[i]
		switch step.Type {
		case schema.StepGoto:
			fmt.Fprintf(sb, "- `%s` → `%s`\n", step.ID, step.Target)
		case schema.StepChoice:
			for _, opt := range step.Options {
				fmt.Fprintf(sb, "- `%s` —%s→ `%s`\n", step.ID, opt.ID, opt.Goto)
			}
		}
	}
	sb.WriteString("\n")
}

func writeSummary(sb *strings.Builder, s *schema.Script, st *stats) {
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(sb, "- %d steps total: %d prompt, %d choice, %d command, %d assert, %d goto, %d end\n",
		len(s.Steps), st.prompts, st.choices, st.commands, st.asserts, st.gotos, st.ends)
	if len(st.variables) > 0 {
		names := make([]string, 0, len(st.variables))
		for name := range st.variables {
			names = append(names, "`"+name+"`")
		}
		sort.Strings(names)
		fmt.Fprintf(sb, "- Variables bound by prompts: %s\n", strings.Join(names, ", "))
	}
	if st.ends == 0 {
		sb.WriteString("- No explicit end step: the run succeeds after the last step\n")
	}
}
