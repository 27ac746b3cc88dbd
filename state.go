package fridge

import "strings"

// Phase is the lifecycle phase of a generation.
type Phase int

const (
	PhaseIdle       Phase = iota // No generation running.
	PhaseConnecting              // Start accepted, waiting for the start event.
	PhaseStreaming               // Receiving chunks and progress.
	PhaseFinalizing              // Done received, finalizer running.
	PhaseCompleted               // Settled with recipes (possibly none).
	PhaseFailed                  // Settled with an error message.
)

var phaseNames = [...]string{"idle", "connecting", "streaming", "finalizing", "completed", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), true
		}
	}
	return PhaseIdle, false
}

// Active reports whether a generation is in flight.
func (p Phase) Active() bool {
	return p == PhaseConnecting || p == PhaseStreaming || p == PhaseFinalizing
}

// Settled reports whether the generation reached a terminal record.
func (p Phase) Settled() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// State is the single record describing one generation attempt. Only the
// Generator mutates it; everyone else receives copies from Clone.
type State struct {
	Phase Phase

	// Fragments is the append-only sequence of sanitized narrative text.
	Fragments []string

	// Progress is the last reported percentage, always within [0, 100].
	Progress int
	Stage    string

	// Recipes is set exactly once, when the generation completes.
	Recipes []Recipe

	ErrorCode    string
	ErrorMessage string

	// RemainingQuota is nil unless a done or error payload reported it.
	RemainingQuota *int

	// Report describes the finalizer's side effects once completed.
	Report Report
}

// Text returns the accumulated narrative text.
func (s State) Text() string {
	return strings.Join(s.Fragments, "")
}

// IsZero reports whether s is the empty state of a fresh or reset Generator.
func (s State) IsZero() bool {
	r := s.Report
	return s.Phase == PhaseIdle && len(s.Fragments) == 0 && s.Progress == 0 &&
		s.Stage == "" && len(s.Recipes) == 0 && s.ErrorCode == "" &&
		s.ErrorMessage == "" && s.RemainingQuota == nil &&
		r.Saved == 0 && r.Failed == 0 && !r.Invalidated && r.InvalidateErr == nil &&
		!r.Notified && r.NotifyErr == nil
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s State) Clone() State {
	c := s
	c.Fragments = append([]string(nil), s.Fragments...)
	if s.Recipes != nil {
		c.Recipes = make([]Recipe, len(s.Recipes))
		for i, r := range s.Recipes {
			c.Recipes[i] = r.Clone()
		}
	}
	if s.RemainingQuota != nil {
		q := *s.RemainingQuota
		c.RemainingQuota = &q
	}
	return c
}
