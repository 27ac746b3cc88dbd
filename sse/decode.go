package sse

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/fwojciec/fridge"
)

// envelope is the JSON payload of one frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chunkData struct {
	Text    string `json:"text"`
	Section string `json:"section"`
}

type progressData struct {
	Percent float64 `json:"percent"`
	Stage   string  `json:"stage"`
}

type doneData struct {
	Recipes          []any    `json:"recipes"`
	RemainingQueries *float64 `json:"remainingQueries"`
}

type errorData struct {
	Code             string   `json:"code"`
	Message          string   `json:"message"`
	RemainingQueries *float64 `json:"remainingQueries"`
}

// Decode parses one frame into an event. It returns false for frames that
// are not valid JSON, lack a known discriminant, or carry a payload of the
// wrong shape; such frames are meant to be dropped.
func Decode(frame string) (fridge.Event, bool) {
	payload, ok := strings.CutPrefix(frame, Prefix)
	if !ok {
		return nil, false
	}
	payload = strings.TrimSpace(payload)

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, false
	}

	switch env.Event {
	case "start":
		return fridge.EventStart{}, true
	case "chunk":
		var d chunkData
		if !unmarshalData(env.Data, &d) {
			return nil, false
		}
		return fridge.EventChunk{Text: d.Text, Section: d.Section}, true
	case "progress":
		var d progressData
		if !unmarshalData(env.Data, &d) {
			return nil, false
		}
		return fridge.EventProgress{Percent: roundPercent(d.Percent), Stage: d.Stage}, true
	case "done":
		var d doneData
		if !unmarshalData(env.Data, &d) {
			return nil, false
		}
		return fridge.EventDone{Recipes: d.Recipes, RemainingQueries: toInt(d.RemainingQueries)}, true
	case "error":
		var d errorData
		if !unmarshalData(env.Data, &d) {
			return nil, false
		}
		return fridge.EventError{Code: d.Code, Message: d.Message, RemainingQueries: toInt(d.RemainingQueries)}, true
	default:
		// Unknown events are ignored for forward compatibility.
		return nil, false
	}
}

// unmarshalData treats a missing or null data object as empty.
func unmarshalData(raw json.RawMessage, v any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return json.Unmarshal(raw, v) == nil
}

func roundPercent(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Round(f)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

func toInt(f *float64) *int {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}
