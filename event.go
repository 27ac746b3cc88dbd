package fridge

// Event is a sealed interface representing one decoded frame of a recipe
// generation stream. Events are structural only: nothing in an event has been
// validated or sanitized yet.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventStart signals that the server accepted the request and began
// generating.
type EventStart struct{}

func (EventStart) event() {}

// Sections carried by EventChunk. Only narrative sections are appended to the
// accumulated text.
const (
	SectionNarrative = "narrative"
	SectionGreeting  = "greeting"
)

// EventChunk carries a fragment of free text produced by the model.
type EventChunk struct {
	Text    string
	Section string
}

func (EventChunk) event() {}

// Narrative reports whether the chunk belongs to the user-visible narrative.
func (e EventChunk) Narrative() bool {
	switch e.Section {
	case "", SectionNarrative, SectionGreeting:
		return true
	default:
		return false
	}
}

// EventProgress reports generation progress as reported by the server.
// Percent is not clamped here.
type EventProgress struct {
	Percent int
	Stage   string
}

func (EventProgress) event() {}

// EventDone is the terminal success event. Recipes holds the untrusted,
// arbitrarily shaped items exactly as decoded from JSON.
type EventDone struct {
	Recipes          []any
	RemainingQueries *int
}

func (EventDone) event() {}

// EventError is the terminal failure event, either sent by the server or
// synthesized by a transport for HTTP and network failures.
type EventError struct {
	Code             string
	Message          string
	RemainingQueries *int
}

func (EventError) event() {}

// Interface compliance checks.
var (
	_ Event = EventStart{}
	_ Event = EventChunk{}
	_ Event = EventProgress{}
	_ Event = EventDone{}
	_ Event = EventError{}
)
