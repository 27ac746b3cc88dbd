package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/anthropic"
	"github.com/fwojciec/fridge/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseResponse is a helper to build SSE responses for tests.
type sseResponse struct {
	events []sseEvent
}

type sseEvent struct {
	event string
	data  string
}

func (s sseResponse) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, evt := range s.events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.event, evt.data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

const messageStart = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":1}}}`

func textDelta(text string) sseEvent {
	data, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]any{"type": "text_delta", "text": text},
	})
	return sseEvent{"content_block_delta", string(data)}
}

func stopReason(reason string) sseEvent {
	return sseEvent{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"` + reason + `","stop_sequence":null},"usage":{"output_tokens":5}}`}
}

// replyResponse wraps text deltas in a complete message.
func replyResponse(deltas ...string) sseResponse {
	events := []sseEvent{
		{"message_start", messageStart},
		{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
		{"ping", `{"type":"ping"}`},
	}
	for _, d := range deltas {
		events = append(events, textDelta(d))
	}
	return sseResponse{events: append(events,
		sseEvent{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		stopReason("end_turn"),
		sseEvent{"message_stop", `{"type":"message_stop"}`},
	)}
}

func streamFromSSE(t *testing.T, resp sseResponse) fridge.Stream {
	t.Helper()
	srv := httptest.NewServer(resp.handler())
	t.Cleanup(srv.Close)
	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	s, err := client.Open(context.Background(), fridge.Request{Prompt: "晚餐"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func collectEvents(t *testing.T, s fridge.Stream) []fridge.Event {
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
	s := streamFromSSE(t, replyResponse(
		"推薦番茄炒蛋。",
		"\n```json\n{\"recipes\":[{\"name\":\"番茄炒蛋\"}]}",
		"\n```",
	))

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventChunk{Text: "推薦番茄炒蛋。", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 7, Stage: reply.StageNarrating},
		fridge.EventChunk{Text: "\n", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 7, Stage: reply.StageNarrating},
		fridge.EventProgress{Percent: 60, Stage: reply.StageWriting},
		fridge.EventDone{Recipes: []any{map[string]any{"name": "番茄炒蛋"}}},
	}, collectEvents(t, s))
}

func TestStream_NoRecipeBlock(t *testing.T) {
	t.Parallel()
	s := streamFromSSE(t, replyResponse("只有文字"))

	events := collectEvents(t, s)
	require.NotEmpty(t, events)
	assert.Equal(t, fridge.EventDone{Recipes: []any{}}, events[len(events)-1])
}

func TestStream_Refusal(t *testing.T) {
	t.Parallel()
	s := streamFromSSE(t, sseResponse{events: []sseEvent{
		{"message_start", messageStart},
		stopReason("refusal"),
		{"message_stop", `{"type":"message_stop"}`},
	}})

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventError{Code: fridge.CodeDisallowedContent, Message: "refusal"},
	}, collectEvents(t, s))
}

func TestStream_ErrorEvent(t *testing.T) {
	t.Parallel()
	s := streamFromSSE(t, sseResponse{events: []sseEvent{
		{"message_start", messageStart},
		textDelta("好的"),
		{"error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`},
	}})

	events := collectEvents(t, s)
	require.NotEmpty(t, events)
	assert.Equal(t, fridge.EventError{
		Code:    fridge.CodeUpstreamUnavailable,
		Message: "overloaded_error: Overloaded",
	}, events[len(events)-1])
}

func TestStream_UnexpectedEnd(t *testing.T) {
	t.Parallel()
	s := streamFromSSE(t, sseResponse{events: []sseEvent{
		{"message_start", messageStart},
		textDelta("好的"),
	}})

	events := collectEvents(t, s)
	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventChunk{Text: "好的", Section: fridge.SectionNarrative},
		fridge.EventProgress{Percent: 5, Stage: reply.StageNarrating},
	}, events)
}

func TestStream_MalformedEventSkipped(t *testing.T) {
	t.Parallel()
	s := streamFromSSE(t, sseResponse{events: []sseEvent{
		{"message_start", messageStart},
		{"content_block_delta", `{not json`},
		textDelta("```json\n[]\n```"),
		{"message_stop", `{"type":"message_stop"}`},
	}})

	assert.Equal(t, []fridge.Event{
		fridge.EventStart{},
		fridge.EventProgress{Percent: 60, Stage: reply.StageWriting},
		fridge.EventDone{Recipes: []any{}},
	}, collectEvents(t, s))
}

func TestStream_Close(t *testing.T) {
	t.Parallel()
	s := streamFromSSE(t, replyResponse("好的"))

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, fridge.EventStart{}, evt)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Next()
	assert.ErrorIs(t, err, fridge.ErrStreamClosed)
}
