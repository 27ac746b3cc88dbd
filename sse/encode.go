package sse

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/fridge"
)

// Encode renders an event as one frame including the blank-line terminator.
// It is the inverse of Decode and is used by fakes and test servers.
func Encode(evt fridge.Event) ([]byte, error) {
	var env struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}
	switch e := evt.(type) {
	case fridge.EventStart:
		env.Event, env.Data = "start", struct{}{}
	case fridge.EventChunk:
		env.Event, env.Data = "chunk", chunkData{Text: e.Text, Section: e.Section}
	case fridge.EventProgress:
		env.Event, env.Data = "progress", progressData{Percent: float64(e.Percent), Stage: e.Stage}
	case fridge.EventDone:
		env.Event, env.Data = "done", doneData{Recipes: e.Recipes, RemainingQueries: toFloat(e.RemainingQueries)}
	case fridge.EventError:
		env.Event, env.Data = "error", errorData{Code: e.Code, Message: e.Message, RemainingQueries: toFloat(e.RemainingQueries)}
	default:
		return nil, fmt.Errorf("sse: unknown event type %T", evt)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	return fmt.Appendf(nil, "%s %s\n\n", Prefix, payload), nil
}

func toFloat(n *int) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
