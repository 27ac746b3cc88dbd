package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/fridge"
	bt "github.com/fwojciec/fridge/bubbletea"
	"github.com/stretchr/testify/require"
)

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, generate bt.GenerateFunc, base fridge.Request) bt.Model {
	t.Helper()
	m := bt.New(generate, base, fridge.DefaultTheme())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// nopGenerate settles immediately with an empty completed state.
func nopGenerate(_ context.Context, _ fridge.Request, _ func(fridge.State)) (fridge.State, error) {
	return fridge.State{Phase: fridge.PhaseCompleted, Progress: 100, Stage: "完成"}, nil
}

func completed() fridge.State {
	q := 3
	return fridge.State{
		Phase:          fridge.PhaseCompleted,
		Fragments:      []string{"推薦你做番茄炒蛋。"},
		Progress:       100,
		Stage:          "完成",
		RemainingQuota: &q,
		Recipes: []fridge.Recipe{{
			ID:         "r1",
			Persisted:  true,
			Name:       "番茄炒蛋",
			Category:   "中式",
			Difficulty: "簡單",
			Servings:   2,
			CookTime:   15,
			Ingredients: []fridge.Ingredient{
				{Name: "番茄", Quantity: "2", Unit: "顆", Kind: fridge.IngredientKindMain},
				{Name: "鹽", Quantity: "少許", Kind: fridge.IngredientKindSeasoning},
			},
			Steps: []string{"番茄切塊", "炒蛋後拌炒"},
		}},
		Report: fridge.Report{Saved: 1},
	}
}
