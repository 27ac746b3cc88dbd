package mock

import (
	"io"
	"sync"

	"github.com/fwojciec/fridge"
)

// Interface compliance checks.
var (
	_ fridge.Stream = (*Stream)(nil)
	_ fridge.Stream = (*Pipe)(nil)
)

// Stream is a test double for fridge.Stream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe because
// test code commonly calls defer stream.Close().
type Stream struct {
	NextFn  func() (fridge.Event, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (fridge.Event, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Pipe is a stream fed by the test: Next blocks until Send delivers an event,
// End ends the stream with io.EOF, or Close aborts it.
type Pipe struct {
	events chan fridge.Event
	ended  chan struct{}
	closed chan struct{}

	endOnce   sync.Once
	closeOnce sync.Once
}

// NewPipe creates an open Pipe.
func NewPipe() *Pipe {
	return &Pipe{
		events: make(chan fridge.Event),
		ended:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Script returns a Pipe that yields events in order, then io.EOF.
func Script(events ...fridge.Event) *Pipe {
	p := &Pipe{
		events: make(chan fridge.Event, len(events)),
		ended:  make(chan struct{}),
		closed: make(chan struct{}),
	}
	for _, evt := range events {
		p.events <- evt
	}
	p.End()
	return p
}

// Send delivers evt to the reader. It reports false when the pipe was
// closed before the event was taken.
func (p *Pipe) Send(evt fridge.Event) bool {
	select {
	case p.events <- evt:
		return true
	case <-p.closed:
		return false
	}
}

// End makes Next return io.EOF once queued events are drained.
func (p *Pipe) End() {
	p.endOnce.Do(func() { close(p.ended) })
}

// Closed is closed once Close has been called.
func (p *Pipe) Closed() <-chan struct{} {
	return p.closed
}

// Next returns the next event. Queued events win over End; Close wins over
// everything.
func (p *Pipe) Next() (fridge.Event, error) {
	select {
	case <-p.closed:
		return nil, fridge.ErrStreamClosed
	default:
	}
	select {
	case evt := <-p.events:
		return evt, nil
	case <-p.closed:
		return nil, fridge.ErrStreamClosed
	case <-p.ended:
		select {
		case evt := <-p.events:
			return evt, nil
		default:
			return nil, io.EOF
		}
	}
}

// Close aborts the pipe. It is idempotent.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
