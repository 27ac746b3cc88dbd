// Package bubbletea provides a Bubble Tea TUI that follows one recipe
// generation at a time.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/fridge"
)

// GenerateFunc runs one generation for req. The onState callback receives a
// snapshot after every state change. The function blocks until the
// generation settles or the context is cancelled, then returns the final
// state.
type GenerateFunc func(ctx context.Context, req fridge.Request, onState func(fridge.State)) (fridge.State, error)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits and returns the final model. The context is used for graceful
// shutdown: when cancelled, the program quits.
func Run(ctx context.Context, m Model) (Model, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		m = fm
	}
	return m, err
}

// SubmitMsg starts a generation for Prompt, as if typed and sent.
type SubmitMsg struct {
	Prompt string
}

// StateMsg delivers a generation state snapshot to the model.
type StateMsg struct {
	State fridge.State
}

// GenerationDoneMsg signals that the generation has stopped running.
type GenerationDoneMsg struct {
	State fridge.State
	Err   error
}
