package providers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// Console collects prompt and choice answers from a terminal via readline.
// One Console serves one run at a time.
type Console struct {
	rl       *readline.Instance
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewConsole creates a terminal-backed answer surface.
func NewConsole() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "abort",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}

	c := &Console{rl: rl, out: os.Stdout}
	// Markdown rendering is best-effort; a bare terminal falls back to raw text.
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
		c.renderer = r
	}
	return c, nil
}

// Close releases the readline instance.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Hooks assembles a full hook set: console prompts and choices, real command
// execution, expr-lang evaluation, and progress logging to stdout.
func (c *Console) Hooks() engine.Hooks {
	return engine.Hooks{
		Prompt:      c.Prompt,
		Choose:      c.Choose,
		ExecCommand: ExecCommandHook(),
		Evaluate:    EvaluateHook(),
		Log: func(message string) {
			fmt.Fprintln(c.out, message)
		},
	}
}

// Prompt asks the user for a line of text. An empty answer falls back to the
// default value when one is declared.
func (c *Console) Prompt(ctx context.Context, message, defaultValue string, rc *engine.RunnerContext) (string, error) {
	fmt.Fprintf(c.out, "\n📝 %s\n", c.markdown(message))
	prompt := "   answer: "
	if defaultValue != "" {
		prompt = fmt.Sprintf("   answer [%s]: ", defaultValue)
	}

	line, err := c.readLine(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}

// Choose presents the options and reads a selection. The user may type an
// option id or its 1-based list number.
func (c *Console) Choose(ctx context.Context, message string, options []schema.ChoiceOption, rc *engine.RunnerContext) (string, error) {
	fmt.Fprintf(c.out, "\n⎇ %s\n", c.markdown(message))
	ids := make([]string, len(options))
	for i, opt := range options {
		label := opt.Label
		if label == "" {
			label = opt.ID
		}
		fmt.Fprintf(c.out, "   %d. %s [%s]\n", i+1, label, opt.ID)
		ids[i] = opt.ID
	}

	completer := readline.NewPrefixCompleter()
	for _, id := range ids {
		completer.Children = append(completer.Children, readline.PcItem(id))
	}

	for {
		line, err := c.readLine(ctx, "   select: ", completer)
		if err != nil {
			return "", err
		}
		if opt := resolveSelection(options, line); opt != nil {
			return opt.ID, nil
		}
		fmt.Fprintf(c.out, "   %q is not one of the options\n", line)
	}
}

// readLine runs a readline read, honoring context cancellation.
func (c *Console) readLine(ctx context.Context, prompt string, completer readline.AutoCompleter) (string, error) {
	cfg := c.rl.Config.Clone()
	cfg.Prompt = prompt
	cfg.AutoComplete = completer
	c.rl.SetConfig(cfg)

	type lineResult struct {
		line string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := c.rl.Readline()
		ch <- lineResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if r.err == readline.ErrInterrupt || r.err == io.EOF {
				return "", fmt.Errorf("input aborted: %w", r.err)
			}
			return "", fmt.Errorf("read answer: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	}
}

// resolveSelection matches typed input against option ids or list numbers.
func resolveSelection(options []schema.ChoiceOption, input string) *schema.ChoiceOption {
	for i := range options {
		if options[i].ID == input {
			return &options[i]
		}
	}
	var n int
	if _, err := fmt.Sscanf(input, "%d", &n); err == nil && n >= 1 && n <= len(options) {
		return &options[n-1]
	}
	return nil
}

func (c *Console) markdown(md string) string {
	if c.renderer == nil || strings.TrimSpace(md) == "" {
		return md
	}
	out, err := c.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
