package fridge

import (
	"context"
	"io"
	"sync"
)

// Stream uses a pull-based iterator pattern. Next returns decoded events in
// arrival order and io.EOF once the underlying connection has ended.
//
// Transports never surface HTTP or network failures as errors from Next:
// they are converted into a synthetic EventError so a stream always ends on
// an event the Generator understands. Close aborts the stream; it is
// idempotent, and after it returns Next yields ErrStreamClosed and no further
// events.
type Stream interface {
	Next() (Event, error)
	Close() error
}

// Transport opens a generation stream for a request. It is a strategy
// interface: the HTTP backend and the direct Gemini client both implement it.
type Transport interface {
	Open(ctx context.Context, req Request) (Stream, error)
}

// ErrorStream returns a Stream that yields evt once and then io.EOF.
// Transports use it to report failures that happen before a response body
// can be read.
func ErrorStream(evt EventError) Stream {
	return &errorStream{evt: evt}
}

type errorStream struct {
	mu     sync.Mutex
	evt    Event
	closed bool
}

func (s *errorStream) Next() (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.evt == nil {
		return nil, io.EOF
	}
	evt := s.evt
	s.evt = nil
	return evt, nil
}

func (s *errorStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
