// Package tui implements a Bubble Tea surface for interactive script runs.
// The engine executes in a background goroutine; pending prompts and choices
// arrive over the bridge and are answered from the keyboard.
package tui

import "github.com/charmbracelet/lipgloss"

// Step status glyphs shown in the step list.
const (
	GlyphPending = "○"
	GlyphCurrent = "▸"
	GlyphPassed  = "✓"
	GlyphFailed  = "✗"
	GlyphSkipped = "⏭"
	GlyphEnd     = "◆"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var (
	stepNormal  = lipgloss.NewStyle().Foreground(colorWhite)
	stepCurrent = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	stepPassed  = lipgloss.NewStyle().Foreground(colorGreen)
	stepFailed  = lipgloss.NewStyle().Foreground(colorRed)
	stepSkipped = lipgloss.NewStyle().Foreground(colorDim)
)

var questionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorYellow).
	Padding(0, 1)

var optionStyle = lipgloss.NewStyle().Foreground(colorWhite).PaddingLeft(3)

var optionSelected = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	PaddingLeft(1)

var resultSuccess = lipgloss.NewStyle().Bold(true).Foreground(colorGreen).Padding(0, 1)
var resultFailure = lipgloss.NewStyle().Bold(true).Foreground(colorRed).Padding(0, 1)

var helpStyle = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
