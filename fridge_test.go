package fridge_test

import (
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/fridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code string
		raw  string
		want string
	}{
		{fridge.CodeEmptyPrompt, "", "請輸入想吃什麼或可用的食材"},
		{fridge.CodeQuotaExceeded, "quota exceeded", "已達每日查詢上限，請明天再試"},
		{fridge.CodeUnauthenticated, "", "請先登入後再使用 AI 食譜"},
		{fridge.CodeUpstreamUnavailable, "", "AI 服務暫時無法使用，請稍後再試"},
		{fridge.CodeDisallowedContent, "", "內容不符合使用規範，請調整後再試"},
		{fridge.CodeNetwork, "dial tcp", "網路連線失敗，請檢查網路後再試"},
		{fridge.CodeStreamInterrupted, "", "連線中斷，請重新生成"},
		{fridge.CodeHTTP, "HTTP 418", "HTTP 418"},
		{"AI_999", "", "生成失敗，請稍後再試"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fridge.ErrorMessage(tt.code, tt.raw), tt.code)
	}
}

func TestPromptError(t *testing.T) {
	t.Parallel()
	var err error = &fridge.PromptError{Reason: fridge.PromptTooLong}

	assert.EqualError(t, err, "prompt rejected: too_long")
	assert.ErrorIs(t, err, fridge.ErrValidation)

	var pe *fridge.PromptError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, fridge.PromptTooLong, pe.Reason)
}

func TestPhase(t *testing.T) {
	t.Parallel()
	tests := []struct {
		phase   fridge.Phase
		name    string
		active  bool
		settled bool
	}{
		{fridge.PhaseIdle, "idle", false, false},
		{fridge.PhaseConnecting, "connecting", true, false},
		{fridge.PhaseStreaming, "streaming", true, false},
		{fridge.PhaseFinalizing, "finalizing", true, false},
		{fridge.PhaseCompleted, "completed", false, true},
		{fridge.PhaseFailed, "failed", false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.phase.String())
		assert.Equal(t, tt.active, tt.phase.Active(), tt.name)
		assert.Equal(t, tt.settled, tt.phase.Settled(), tt.name)

		parsed, ok := fridge.ParsePhase(tt.name)
		assert.True(t, ok)
		assert.Equal(t, tt.phase, parsed)
	}

	assert.Equal(t, "unknown", fridge.Phase(42).String())
	_, ok := fridge.ParsePhase("exploded")
	assert.False(t, ok)
}

func TestState_Clone(t *testing.T) {
	t.Parallel()
	q := 2
	orig := fridge.State{
		Phase:          fridge.PhaseCompleted,
		Fragments:      []string{"a", "b"},
		RemainingQuota: &q,
		Recipes: []fridge.Recipe{{
			Name:        "湯",
			Ingredients: []fridge.Ingredient{{Name: "蛋", Kind: fridge.IngredientKindMain}},
			Steps:       []string{"煮"},
		}},
	}

	c := orig.Clone()
	assert.Equal(t, orig, c)
	assert.Equal(t, "ab", c.Text())

	c.Fragments[0] = "x"
	c.Recipes[0].Ingredients[0].Name = "x"
	c.Recipes[0].Steps[0] = "x"
	*c.RemainingQuota = 9

	assert.Equal(t, "ab", orig.Text())
	assert.Equal(t, "蛋", orig.Recipes[0].Ingredients[0].Name)
	assert.Equal(t, "煮", orig.Recipes[0].Steps[0])
	assert.Equal(t, 2, *orig.RemainingQuota)
}

func TestRecipe(t *testing.T) {
	t.Parallel()
	r := fridge.Recipe{
		ID: "temp-1",
		Ingredients: []fridge.Ingredient{
			{Name: "番茄", Kind: fridge.IngredientKindMain},
			{Name: "鹽", Kind: fridge.IngredientKindSeasoning},
			{Name: "蛋", Kind: fridge.IngredientKindMain},
		},
	}
	assert.True(t, r.Temporary())
	assert.Equal(t, []string{"番茄", "蛋"}, names(r.MainIngredients()))
	assert.Equal(t, []string{"鹽"}, names(r.Seasonings()))

	r.ID = "abc"
	assert.False(t, r.Temporary())
}

func names(ings []fridge.Ingredient) []string {
	out := make([]string, len(ings))
	for i, ing := range ings {
		out[i] = ing.Name
	}
	return out
}

func TestEventChunk_Narrative(t *testing.T) {
	t.Parallel()
	assert.True(t, fridge.EventChunk{}.Narrative())
	assert.True(t, fridge.EventChunk{Section: fridge.SectionNarrative}.Narrative())
	assert.True(t, fridge.EventChunk{Section: fridge.SectionGreeting}.Narrative())
	assert.False(t, fridge.EventChunk{Section: "json"}.Narrative())
}

func TestPromptReason_Message(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "請輸入想吃什麼或可用的食材", fridge.PromptEmpty.Message())
	assert.Equal(t, "輸入內容過長，請精簡後再試", fridge.PromptTooLong.Message())
	assert.Equal(t, "內容不符合使用規範，請調整後再試", fridge.PromptInjection.Message())
	assert.Equal(t, "內容不符合使用規範，請調整後再試", fridge.PromptControlChars.Message())
}

func TestErrorStream(t *testing.T) {
	t.Parallel()
	evt := fridge.EventError{Code: fridge.CodeNetwork, Message: "connection refused"}

	s := fridge.ErrorStream(evt)
	got, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, evt, got)
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)

	closed := fridge.ErrorStream(evt)
	require.NoError(t, closed.Close())
	require.NoError(t, closed.Close())
	_, err = closed.Next()
	assert.ErrorIs(t, err, fridge.ErrStreamClosed)
}
