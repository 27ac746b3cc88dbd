package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/fridge"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	Narrative lipgloss.Style
	Stage     lipgloss.Style
	Recipe    lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style

	// ProgressColor is the bar fill, in the form bubbles/progress expects.
	ProgressColor string
}

// NewStyles creates Styles from a Theme.
func NewStyles(t fridge.Theme) Styles {
	return Styles{
		Narrative:     lipgloss.NewStyle().Foreground(ansiColor(t.Narrative)),
		Stage:         lipgloss.NewStyle().Foreground(ansiColor(t.Stage)),
		Recipe:        lipgloss.NewStyle().Foreground(ansiColor(t.Recipe)).Bold(true),
		Error:         lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Success:       lipgloss.NewStyle().Foreground(ansiColor(t.Success)).Bold(true),
		Muted:         lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:        lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		ProgressColor: colorString(t.Progress),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func colorString(index int) string {
	if index < 0 {
		return ""
	}
	return strconv.Itoa(index)
}
