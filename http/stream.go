package http

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/sse"
)

// Interface compliance check.
var _ fridge.Stream = (*stream)(nil)

// stream implements [fridge.Stream] over a response body. Next is called by
// one goroutine; Close may be called from any goroutine, including while
// Next is blocked in a read.
type stream struct {
	body   io.ReadCloser
	frames *sse.Reader
	logger *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	ended     bool
}

func newStream(body io.ReadCloser, logger *slog.Logger) *stream {
	return &stream{
		body:   body,
		frames: sse.NewReader(body),
		logger: logger,
	}
}

// Next returns the next decoded event. Frames that fail to decode are
// skipped. A read failure yields one synthetic NETWORK_ERROR event followed
// by io.EOF.
func (s *stream) Next() (fridge.Event, error) {
	if s.closed.Load() {
		return nil, fridge.ErrStreamClosed
	}
	if s.ended {
		return nil, io.EOF
	}
	for {
		frame, err := s.frames.Next()
		if err != nil {
			if s.closed.Load() {
				return nil, fridge.ErrStreamClosed
			}
			s.ended = true
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			s.logger.Warn("stream read failed", "error", err)
			return fridge.EventError{Code: fridge.CodeNetwork, Message: err.Error()}, nil
		}
		evt, ok := sse.Decode(frame)
		if !ok {
			s.logger.Debug("dropping undecodable frame", "bytes", len(frame))
			continue
		}
		return evt, nil
	}
}

// Close aborts the underlying connection. It is safe to call repeatedly.
func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.body.Close()
	})
	return err
}
