package gemini_test

import (
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// mockChunks returns a genai-style streaming iterator from pre-built chunks.
func mockChunks(chunks []*genai.GenerateContentResponse, tail error) func(func(*genai.GenerateContentResponse, error) bool) {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	}
}

func textChunk(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, len(texts))
	for i, t := range texts {
		parts[i] = &genai.Part{Text: t}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func collectStreamEvents(t *testing.T, s fridge.Stream) []fridge.Event {
	t.Helper()
	var events []fridge.Event
	for {
		evt, err := s.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
}

func TestStream_NarrativeThenRecipes(t *testing.T) {
	t.Parallel()
	chunks := []*genai.GenerateContentResponse{
		textChunk("根據你的食材，"),
		textChunk("推薦番茄炒蛋。\n``"),
		textChunk("`json\n{\"recipes\":[{\"name\":\"番茄炒蛋\"}]}\n"),
		textChunk("```"),
	}

	s := gemini.NewStreamFromIter(mockChunks(chunks, nil))
	defer s.Close()

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventChunk{Text: "根據你的食材，", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 7, Stage: "構思料理中"},
		fridge.EventChunk{Text: "推薦番茄炒蛋。\n", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 10, Stage: "構思料理中"},
		fridge.EventProgress{Percent: 60, Stage: "撰寫食譜中"},
		fridge.EventDone{Recipes: []any{map[string]any{"name": "番茄炒蛋"}}},
	}, collectStreamEvents(t, s))
}

func TestStream_BareArrayBlock(t *testing.T) {
	t.Parallel()
	chunks := []*genai.GenerateContentResponse{
		textChunk("```\n[{\"name\":\"湯\"}]\n```\n"),
	}

	s := gemini.NewStreamFromIter(mockChunks(chunks, nil))
	defer s.Close()

	events := collectStreamEvents(t, s)
	require.NotEmpty(t, events)
	assert.Equal(t, fridge.EventDone{Recipes: []any{map[string]any{"name": "湯"}}}, events[len(events)-1])
}

func TestStream_NoRecipeBlock(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(mockChunks([]*genai.GenerateContentResponse{textChunk("只有文字")}, nil))
	defer s.Close()

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventChunk{Text: "只有文字", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 6, Stage: "構思料理中"},
		fridge.EventDone{Recipes: []any{}},
	}, collectStreamEvents(t, s))
}

func TestStream_MalformedBlock(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(mockChunks([]*genai.GenerateContentResponse{
		textChunk("```json\n{\"recipes\": [\n```"),
	}, nil))
	defer s.Close()

	events := collectStreamEvents(t, s)
	require.NotEmpty(t, events)
	assert.Equal(t, fridge.EventDone{Recipes: []any{}}, events[len(events)-1])
}

func TestStream_SDKError(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(mockChunks(
		[]*genai.GenerateContentResponse{textChunk("好")},
		errors.New("503 unavailable"),
	))
	defer s.Close()

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventChunk{Text: "好", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 5, Stage: "構思料理中"},
		fridge.EventError{Code: fridge.CodeUpstreamUnavailable, Message: "503 unavailable"},
	}, collectStreamEvents(t, s))
}

func TestStream_SafetyFinish(t *testing.T) {
	t.Parallel()
	chunk := textChunk("抱歉")
	chunk.Candidates[0].FinishReason = genai.FinishReasonSafety

	s := gemini.NewStreamFromIter(mockChunks([]*genai.GenerateContentResponse{chunk, textChunk("never")}, nil))
	defer s.Close()

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventChunk{Text: "抱歉", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 5, Stage: "構思料理中"},
		fridge.EventError{Code: fridge.CodeDisallowedContent, Message: string(genai.FinishReasonSafety)},
	}, collectStreamEvents(t, s))
}

func TestStream_PromptBlocked(t *testing.T) {
	t.Parallel()
	chunks := []*genai.GenerateContentResponse{{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason: genai.BlockedReasonSafety,
		},
	}}

	s := gemini.NewStreamFromIter(mockChunks(chunks, nil))
	defer s.Close()

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventError{Code: fridge.CodeDisallowedContent, Message: string(genai.BlockedReasonSafety)},
	}, collectStreamEvents(t, s))
}

func TestStream_SkipsThoughts(t *testing.T) {
	t.Parallel()
	chunks := []*genai.GenerateContentResponse{{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking", Thought: true},
			{Text: "嗨"},
		}}}},
	}}

	s := gemini.NewStreamFromIter(mockChunks(chunks, nil))
	defer s.Close()

	events := collectStreamEvents(t, s)
	require.Len(t, events, 4)
	assert.Equal(t, fridge.EventChunk{Text: "嗨", Section: fridge.SectionNarrative}, events[1])
}

func TestStream_Close(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(mockChunks([]*genai.GenerateContentResponse{textChunk("a"), textChunk("b")}, nil))

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, fridge.EventStart{}, evt)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Next()
	assert.ErrorIs(t, err, fridge.ErrStreamClosed)
}
