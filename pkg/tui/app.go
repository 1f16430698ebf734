package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/stepscript/pkg/bridge"
	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// Run drives one engine run inside a Bubble Tea program. The engine's
// Prompt/Choose hooks must already be bound to br; the engine executes in a
// background goroutine and the UI answers its pending requests. Returns the
// run's result (nil when the run ended with a fatal error).
func Run(eng *engine.Engine, br *bridge.Bridge) (*engine.RunnerResult, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	er := startEngineRun(ctx, eng)
	m := newModel(eng.Script, br, er.steps, er.done, cancel)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		er.wait(cancel)
		return nil, fmt.Errorf("run tui: %w", err)
	}
	return er.wait(cancel)
}

// engineRun owns the background goroutine executing one script. The steps
// channel closes when the engine returns; finished closes once the outcome
// fields are set.
type engineRun struct {
	steps    chan *engine.StepResult
	done     chan doneMsg
	finished chan struct{}
	result   *engine.RunnerResult
	err      error
}

func startEngineRun(ctx context.Context, eng *engine.Engine) *engineRun {
	er := &engineRun{
		steps:    make(chan *engine.StepResult, 64),
		done:     make(chan doneMsg, 1),
		finished: make(chan struct{}),
	}
	eng.Observer = func(r *engine.StepResult) { er.steps <- r }
	go func() {
		er.result, er.err = eng.Run(ctx)
		close(er.steps)
		er.done <- doneMsg{result: er.result, err: er.err}
		close(er.finished)
	}()
	return er
}

// wait cancels the run, drains step results the surface never consumed so a
// blocked Observer send cannot strand the engine goroutine, and returns the
// outcome once the goroutine has exited. Safe to call after a completed run,
// where it returns immediately.
func (er *engineRun) wait(cancel context.CancelFunc) (*engine.RunnerResult, error) {
	cancel()
	for range er.steps {
	}
	<-er.finished
	return er.result, er.err
}

type doneMsg struct {
	result *engine.RunnerResult
	err    error
}

type pendingMsg bridge.PendingRequest

type stepMsg *engine.StepResult

type model struct {
	script   *schema.Script
	br       *bridge.Bridge
	steps    <-chan *engine.StepResult
	done     <-chan doneMsg
	cancel   context.CancelFunc
	input    textinput.Model
	pending  *bridge.PendingRequest
	cursor   int
	statuses map[string]string // step id → passed/failed/skipped
	width    int
	finished bool
	result   *engine.RunnerResult
	runErr   error
}

func newModel(script *schema.Script, br *bridge.Bridge, steps <-chan *engine.StepResult, done <-chan doneMsg, cancel context.CancelFunc) model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 256
	return model{
		script:   script,
		br:       br,
		steps:    steps,
		done:     done,
		cancel:   cancel,
		input:    ti,
		statuses: make(map[string]string),
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForPending(m.br), waitForStep(m.steps), waitForDone(m.done))
}

func waitForPending(br *bridge.Bridge) tea.Cmd {
	return func() tea.Msg {
		req, ok := <-br.Requests()
		if !ok {
			return nil
		}
		return pendingMsg(req)
	}
}

func waitForStep(steps <-chan *engine.StepResult) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-steps
		if !ok {
			return nil
		}
		return stepMsg(r)
	}
}

func waitForDone(done <-chan doneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case pendingMsg:
		req := bridge.PendingRequest(msg)
		m.pending = &req
		m.cursor = 0
		var cmd tea.Cmd
		if req.Kind == bridge.KindPrompt {
			m.input.SetValue("")
			m.input.Placeholder = req.DefaultValue
			cmd = m.input.Focus()
		}
		return m, tea.Batch(cmd, waitForPending(m.br))

	case stepMsg:
		m.statuses[msg.StepID] = msg.Status
		return m, waitForStep(m.steps)

	case doneMsg:
		m.finished = true
		m.result = msg.result
		m.runErr = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && (m.pending == nil || m.pending.Kind == bridge.KindChoice || msg.Type == tea.KeyCtrlC) {
			m.cancel()
			return m, tea.Quit
		}
		if m.pending == nil {
			return m, nil
		}
		switch m.pending.Kind {
		case bridge.KindPrompt:
			if key.Matches(msg, keys.Select) {
				answer := strings.TrimSpace(m.input.Value())
				if answer == "" {
					answer = m.pending.DefaultValue
				}
				m.br.Resolve(m.pending.StepID, answer)
				m.pending = nil
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd

		case bridge.KindChoice:
			switch {
			case key.Matches(msg, keys.Up):
				if m.cursor > 0 {
					m.cursor--
				}
			case key.Matches(msg, keys.Down):
				if m.cursor < len(m.pending.Options)-1 {
					m.cursor++
				}
			case key.Matches(msg, keys.Select):
				opt := m.pending.Options[m.cursor]
				m.br.Resolve(m.pending.StepID, opt.ID)
				m.pending = nil
			}
			return m, nil
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	title := m.script.Name
	if title == "" {
		title = "step script"
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")

	for i := range m.script.Steps {
		b.WriteString(m.stepLine(&m.script.Steps[i]))
		b.WriteString("\n")
	}

	if m.pending != nil {
		b.WriteString("\n")
		b.WriteString(questionStyle.Render(renderMarkdown(m.pending.Message)))
		b.WriteString("\n")
		switch m.pending.Kind {
		case bridge.KindPrompt:
			b.WriteString("  " + m.input.View() + "\n")
		case bridge.KindChoice:
			for i, opt := range m.pending.Options {
				label := opt.Label
				if label == "" {
					label = opt.ID
				}
				if i == m.cursor {
					b.WriteString(optionSelected.Render("▸ "+label) + "\n")
				} else {
					b.WriteString(optionStyle.Render(label) + "\n")
				}
			}
		}
	}

	if m.finished {
		b.WriteString("\n")
		switch {
		case m.runErr != nil:
			b.WriteString(resultFailure.Render("✗ " + m.runErr.Error()))
		case m.result != nil && m.result.Status == engine.StatusSuccess:
			b.WriteString(resultSuccess.Render("✓ " + m.resultLine()))
		default:
			b.WriteString(resultFailure.Render("■ " + m.resultLine()))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ move · enter answer · q abandon"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m model) resultLine() string {
	line := m.result.Status
	if m.result.LastMessage != "" {
		line += ": " + m.result.LastMessage
	}
	return line
}

// stepLine renders one step row with its status glyph, truncated to the
// terminal width.
func (m model) stepLine(st *schema.Step) string {
	glyph, style := GlyphPending, stepNormal
	switch m.statuses[st.ID] {
	case engine.StepPassed:
		glyph, style = GlyphPassed, stepPassed
	case engine.StepFailed:
		glyph, style = GlyphFailed, stepFailed
	case engine.StepSkipped:
		glyph, style = GlyphSkipped, stepSkipped
	}
	if m.pending != nil && m.pending.StepID == st.ID {
		glyph, style = GlyphCurrent, stepCurrent
	}
	if st.Type == schema.StepEnd && glyph == GlyphPassed {
		glyph = GlyphEnd
	}

	text := st.ID
	if st.Description != "" {
		text += " — " + st.Description
	}
	line := fmt.Sprintf("  %s %s", glyph, text)
	if m.width > 4 {
		line = runewidth.Truncate(line, m.width-2, "…")
	}
	return style.Render(line)
}
