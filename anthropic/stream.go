package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/reply"
)

// Interface compliance check.
var _ fridge.Stream = (*stream)(nil)

const maxLine = 1 << 20

// stream implements [fridge.Stream] by parsing SSE events from an HTTP
// response body. Next is called by one goroutine; Close may be called from
// any goroutine, including while Next is blocked in a read.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	logger  *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once

	ended   bool
	pending []fridge.Event
	parser  reply.Parser
}

func newStream(body io.ReadCloser, cancel context.CancelFunc, logger *slog.Logger) *stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &stream{
		body:    body,
		scanner: scanner,
		cancel:  cancel,
		logger:  logger,
	}
}

// Next returns the next recipe event. A stream that ends without
// message_stop returns io.EOF right away; a read failure yields one
// NETWORK_ERROR event first.
func (s *stream) Next() (fridge.Event, error) {
	if s.closed.Load() {
		return nil, fridge.ErrStreamClosed
	}
	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}
		if s.ended {
			return nil, io.EOF
		}

		eventType, data, err := s.readSSEEvent()
		if err != nil {
			if s.closed.Load() {
				return nil, fridge.ErrStreamClosed
			}
			s.ended = true
			if err == io.EOF {
				return nil, io.EOF
			}
			s.logger.Warn("anthropic stream read failed", "error", err)
			return fridge.EventError{Code: fridge.CodeNetwork, Message: err.Error()}, nil
		}
		if err := s.processEvent(eventType, data); err != nil {
			s.logger.Debug("dropping undecodable event", "event", eventType, "error", err)
		}
	}
}

// Close aborts the request. It is safe to call repeatedly.
func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if v, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(v)
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent queues the recipe events one SSE event produces. Unknown
// event types are ignored per the API contract.
func (s *stream) processEvent(eventType, data string) error {
	switch eventType {
	case "message_start":
		s.pending = append(s.pending, fridge.EventStart{})
	case "content_block_delta":
		var evt sseContentBlockDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return err
		}
		if evt.Delta.Type == "text_delta" && evt.Delta.Text != "" {
			s.pending = append(s.pending, s.parser.Feed(evt.Delta.Text)...)
		}
	case "message_delta":
		var evt sseMessageDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return err
		}
		if evt.Delta.StopReason == nil {
			return nil
		}
		switch reason := *evt.Delta.StopReason; reason {
		case "refusal":
			s.ended = true
			s.logger.Info("anthropic reply refused")
			s.pending = append(s.pending, fridge.EventError{Code: fridge.CodeDisallowedContent, Message: reason})
		case "max_tokens":
			s.logger.Warn("anthropic reply truncated", "stop_reason", reason)
		}
	case "message_stop":
		s.ended = true
		evts, err := s.parser.Finish()
		if err != nil {
			s.logger.Warn("unusable recipe block", "error", err)
		}
		s.pending = append(s.pending, evts...)
	case "error":
		var evt sseError
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return err
		}
		s.ended = true
		s.logger.Warn("anthropic stream error", "type", evt.Error.Type, "message", evt.Error.Message)
		s.pending = append(s.pending, fridge.EventError{
			Code:    errorCode(evt.Error.Type),
			Message: evt.Error.Type + ": " + evt.Error.Message,
		})
	}
	return nil
}
