package fridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed outbound validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrNotStarted indicates Wait was called with no generation in flight.
	ErrNotStarted = errors.New("generation not started")
)

// PromptError reports why an outbound prompt was rejected before any request
// was sent.
type PromptError struct {
	Reason PromptReason
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("prompt rejected: %s", e.Reason)
}

// Unwrap lets callers match any rejection with errors.Is(err, ErrValidation).
func (e *PromptError) Unwrap() error {
	return ErrValidation
}
