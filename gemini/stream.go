package gemini

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/reply"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ fridge.Stream = (*stream)(nil)

// stream implements [fridge.Stream] by wrapping the genai SDK's streaming
// iterator. The first Next yields a start event; SDK errors and safety
// blocks become a synthetic error event.
type stream struct {
	mu     sync.Mutex
	pull   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc
	logger *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once

	started bool
	ended   bool
	pending []fridge.Event
	parser  reply.Parser
}

func newStream(seq iter.Seq2[*genai.GenerateContentResponse, error], cancel context.CancelFunc, logger *slog.Logger) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		pull:   next,
		stop:   stop,
		cancel: cancel,
		logger: logger,
	}
}

// NewStreamFromIter creates a stream from a genai-style iterator.
// Exported for testing.
func NewStreamFromIter(seq iter.Seq2[*genai.GenerateContentResponse, error]) fridge.Stream {
	return newStream(seq, func() {}, slog.New(slog.DiscardHandler))
}

func (s *stream) Next() (fridge.Event, error) {
	if s.closed.Load() {
		return nil, fridge.ErrStreamClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}
		if s.ended {
			return nil, io.EOF
		}
		if !s.started {
			s.started = true
			return fridge.EventStart{}, nil
		}

		resp, err, ok := s.pull()
		if s.closed.Load() {
			return nil, fridge.ErrStreamClosed
		}
		switch {
		case !ok:
			s.ended = true
			evts, err := s.parser.Finish()
			if err != nil {
				s.logger.Warn("unusable recipe block", "error", err)
			}
			s.pending = append(s.pending, evts...)
		case err != nil:
			s.ended = true
			s.logger.Warn("gemini stream failed", "error", err)
			s.pending = append(s.pending, fridge.EventError{Code: fridge.CodeUpstreamUnavailable, Message: err.Error()})
		default:
			s.handle(resp)
		}
	}
}

func (s *stream) handle(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		s.block(string(resp.PromptFeedback.BlockReason))
		return
	}
	if len(resp.Candidates) == 0 {
		return
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			s.pending = append(s.pending, s.parser.Feed(part.Text)...)
		}
	}
	if cand.FinishReason == genai.FinishReasonSafety {
		s.block(string(cand.FinishReason))
	}
}

// block ends the stream with a disallowed-content error. Narrative already
// queued is kept ahead of it.
func (s *stream) block(reason string) {
	s.ended = true
	s.logger.Info("gemini reply blocked", "reason", reason)
	s.pending = append(s.pending, fridge.EventError{Code: fridge.CodeDisallowedContent, Message: reason})
}

// Close cancels the request and releases the iterator. It waits for an
// in-flight Next, which returns promptly once the context is cancelled.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stop()
	})
	return nil
}
