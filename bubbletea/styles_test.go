package bubbletea_test

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/fridge"
	bt "github.com/fwojciec/fridge/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewStyles(t *testing.T) {
	t.Parallel()

	theme := fridge.DefaultTheme()
	styles := bt.NewStyles(theme)

	assert.Equal(t, lipgloss.NoColor{}, styles.Narrative.GetForeground())

	assert.Equal(t, lipgloss.Color("6"), styles.Stage.GetForeground())

	assert.Equal(t, lipgloss.Color("5"), styles.Recipe.GetForeground())
	assert.True(t, styles.Recipe.GetBold())

	assert.Equal(t, lipgloss.Color("1"), styles.Error.GetForeground())

	assert.Equal(t, lipgloss.Color("2"), styles.Success.GetForeground())
	assert.True(t, styles.Success.GetBold())

	assert.Equal(t, lipgloss.Color("8"), styles.Muted.GetForeground())
	assert.True(t, styles.Muted.GetFaint())

	assert.Equal(t, lipgloss.Color("5"), styles.Accent.GetForeground())
	assert.True(t, styles.Accent.GetBold())

	assert.Equal(t, "2", styles.ProgressColor)
}

func TestNewStylesNegativeIndexYieldsNoColor(t *testing.T) {
	t.Parallel()

	theme := fridge.Theme{Error: -1, Progress: -1}
	styles := bt.NewStyles(theme)

	assert.Equal(t, lipgloss.NoColor{}, styles.Error.GetForeground())
	assert.Empty(t, styles.ProgressColor)
}
