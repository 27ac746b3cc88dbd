package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/fridge"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

const (
	helpIdle    = "輸入想吃什麼後按 Enter，Ctrl+C 離開"
	helpRunning = "Esc 取消"
	ellipsis    = "…"
)

// Model is the Bubble Tea model for the recipe generation TUI.
type Model struct {
	// Input is the prompt entry. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable narrative and recipe area. Exported for
	// test access.
	Viewport viewport.Model
	// Spinner and Progress render the status line while running.
	Spinner  spinner.Model
	Progress progress.Model

	generate GenerateFunc
	base     fridge.Request
	styles   Styles

	state   fridge.State
	last    fridge.Request
	running bool
	cancel  context.CancelFunc
	stateCh chan fridge.State
	doneCh  chan GenerationDoneMsg
	err     error
	ready   bool
	width   int
}

// New creates a new TUI Model. Every submitted prompt is sent with the
// ingredients, group and user of base. When base carries a prompt, the
// first generation starts as soon as the program runs.
func New(generate GenerateFunc, base fridge.Request, theme fridge.Theme) Model {
	styles := NewStyles(theme)

	ti := textinput.New()
	ti.Placeholder = "想吃什麼？"
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	opts := []progress.Option{progress.WithoutPercentage()}
	if styles.ProgressColor != "" {
		opts = append(opts, progress.WithSolidFill(styles.ProgressColor))
	}

	return Model{
		Input:    ti,
		Spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Stage)),
		Progress: progress.New(opts...),
		generate: generate,
		base:     base,
		styles:   styles,
	}
}

// Running returns whether a generation is in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// State returns the last state snapshot received.
func (m Model) State() fridge.State { return m.state }

// Request returns the request of the last submitted generation.
func (m Model) Request() fridge.Request { return m.last }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if strings.TrimSpace(m.base.Prompt) == "" && len(m.base.Ingredients) == 0 {
		return textinput.Blink
	}
	prompt := m.base.Prompt
	return func() tea.Msg { return SubmitMsg{Prompt: prompt} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SubmitMsg:
		if m.running {
			return m, nil
		}
		return m.submit(msg.Prompt)

	case StateMsg:
		m.state = msg.State
		m = m.refresh()
		if m.stateCh != nil {
			return m, listenForState(m.stateCh, m.doneCh)
		}
		return m, nil

	case GenerationDoneMsg:
		m.running = false
		m.cancel = nil
		m.stateCh = nil
		m.doneCh = nil
		m.state = msg.State
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m = m.refresh()
		return m, m.Input.Focus()

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	// Viewport always receives remaining messages for scrolling.
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2
	vpHeight := msg.Height - inputH - statusHeight - borderHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.width = msg.Width
	m.Progress.Width = min(40, max(10, msg.Width/3))
	m.Input.Width = msg.Width - lipgloss.Width(m.Input.Prompt) - 1
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			m.stop()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.running {
			m.stop()
		}
		return m, nil

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		return m.submit(m.Input.Value())
	}

	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		// Character keys go to the input only; 'j' and 'k' would also
		// scroll the viewport.
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m Model) submit(prompt string) (tea.Model, tea.Cmd) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(m.base.Ingredients) == 0 {
		return m, nil
	}
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m.state = fridge.State{}

	req := m.base
	req.Prompt = prompt
	m.last = req

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.stateCh = make(chan fridge.State, 256)
	m.doneCh = make(chan GenerationDoneMsg, 1)
	m.running = true
	m = m.refresh()

	return m, tea.Batch(
		startGeneration(m.generate, ctx, req, m.stateCh, m.doneCh),
		listenForState(m.stateCh, m.doneCh),
		m.Spinner.Tick,
	)
}

// refresh re-renders the viewport content and scrolls to the bottom.
func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	var sections []string
	if text := m.state.Text(); text != "" {
		sections = append(sections, m.styles.Narrative.Width(width).Render(text))
	}
	if m.state.Phase == fridge.PhaseCompleted {
		for i, r := range m.state.Recipes {
			sections = append(sections, m.renderRecipe(i+1, r, width))
		}
	}
	if m.state.Phase == fridge.PhaseFailed {
		sections = append(sections, m.styles.Error.Width(width).Render("錯誤："+m.state.ErrorMessage))
	}
	return strings.Join(sections, "\n\n")
}

func (m Model) renderRecipe(n int, r fridge.Recipe, width int) string {
	var b strings.Builder
	b.WriteString(m.styles.Recipe.Render(fmt.Sprintf("%d. %s", n, r.Name)))
	meta := fmt.Sprintf(" · %s · %s · %d 人份 · %d 分鐘", r.Category, r.Difficulty, r.Servings, r.CookTime)
	b.WriteString(m.styles.Muted.Render(meta))
	if r.Persisted {
		b.WriteString(m.styles.Success.Render(" ✓"))
	}
	b.WriteString("\n")
	if r.Description != "" {
		b.WriteString(lipgloss.NewStyle().Width(width).Render(r.Description))
		b.WriteString("\n")
	}
	writeIngredients(&b, m.styles.Accent.Render("食材"), r.MainIngredients())
	writeIngredients(&b, m.styles.Accent.Render("調味"), r.Seasonings())
	b.WriteString(m.styles.Accent.Render("步驟"))
	for i, step := range r.Steps {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).PaddingLeft(2).Render(fmt.Sprintf("%d. %s", i+1, step)))
	}
	return b.String()
}

// ingredientColumn is the display width ingredient names are padded to.
const ingredientColumn = 12

func writeIngredients(b *strings.Builder, label string, ings []fridge.Ingredient) {
	if len(ings) == 0 {
		return
	}
	b.WriteString(label)
	for _, ing := range ings {
		b.WriteString("\n  ")
		amount := strings.TrimSpace(ing.Quantity + " " + ing.Unit)
		if amount == "" {
			b.WriteString(ing.Name)
			continue
		}
		b.WriteString(runewidth.FillRight(runewidth.Truncate(ing.Name, ingredientColumn, ellipsis), ingredientColumn))
		b.WriteString(" ")
		b.WriteString(amount)
	}
	b.WriteString("\n")
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(m.fit(errorText(m.err)))
	}
	if m.running {
		bar := m.Progress.ViewAs(float64(m.state.Progress) / 100)
		prefix := m.Spinner.View() + " " + bar + " "
		room := m.width - lipgloss.Width(prefix) - runewidth.StringWidth(helpRunning) - 2
		stage := runewidth.Truncate(m.state.Stage, max(room, 0), ellipsis)
		return prefix + m.styles.Stage.Render(stage) + "  " + m.styles.Muted.Render(helpRunning)
	}
	switch m.state.Phase {
	case fridge.PhaseCompleted:
		msg := fmt.Sprintf("%s：共 %d 道食譜", m.state.Stage, len(m.state.Recipes))
		if m.state.Report.Saved > 0 {
			msg += fmt.Sprintf("，已儲存 %d 道", m.state.Report.Saved)
		}
		return m.styles.Success.Render(m.fit(msg)) + m.quota()
	case fridge.PhaseFailed:
		return m.styles.Error.Render(m.fit(m.state.ErrorMessage)) + m.quota()
	case fridge.PhaseIdle:
		if m.state.Text() != "" {
			return m.styles.Muted.Render(m.fit("已取消。" + helpIdle))
		}
	}
	return m.styles.Muted.Render(m.fit(helpIdle))
}

func (m Model) quota() string {
	if m.state.RemainingQuota == nil {
		return ""
	}
	return m.styles.Muted.Render(fmt.Sprintf("  剩餘次數 %d", *m.state.RemainingQuota))
}

// fit truncates s to the terminal width.
func (m Model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return runewidth.Truncate(s, m.width, ellipsis)
}

func errorText(err error) string {
	var pe *fridge.PromptError
	if errors.As(err, &pe) {
		return pe.Reason.Message()
	}
	return "錯誤：" + err.Error()
}

// startGeneration runs the generation in a goroutine and signals completion.
func startGeneration(generate GenerateFunc, ctx context.Context, req fridge.Request, stateCh chan<- fridge.State, doneCh chan<- GenerationDoneMsg) tea.Cmd {
	return func() tea.Msg {
		st, err := generate(ctx, req, func(s fridge.State) {
			select {
			case stateCh <- s:
			case <-ctx.Done():
			}
		})
		close(stateCh)
		doneCh <- GenerationDoneMsg{State: st, Err: err}
		return nil
	}
}

// listenForState waits for the next snapshot from the channel. When the
// channel closes, it reads the result from doneCh.
func listenForState(ch <-chan fridge.State, doneCh <-chan GenerationDoneMsg) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return StateMsg{State: s}
	}
}
