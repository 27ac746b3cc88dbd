// Package http implements [fridge.Transport] against the recipe service's
// streaming endpoint.
//
// A request is a single POST whose response body is a server-push stream in
// the framing described by package sse. HTTP status failures and network
// failures never surface as Go errors from the stream; they become a
// synthetic [fridge.EventError] so the Generator can treat every failure the
// same way.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fwojciec/fridge"
	"github.com/google/uuid"
)

const (
	streamPath = "/api/ai/recipes/stream"

	// maxErrorBody bounds how much of a failed response is read for its
	// message.
	maxErrorBody = 64 << 10
)

// Interface compliance check.
var _ fridge.Transport = (*Client)(nil)

// Client implements [fridge.Transport] for the recipe service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client must not set a
// response timeout shorter than a full generation.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a [Client] for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiRequest struct {
	Prompt      string   `json:"prompt"`
	Ingredients []string `json:"ingredients"`
	GroupID     string   `json:"groupId,omitempty"`
}

// Open sends the generation request and returns its event stream. The
// returned error is non-nil only when the request could not be built or ctx
// was cancelled before a response arrived.
func (c *Client) Open(ctx context.Context, req fridge.Request) (fridge.Stream, error) {
	ingredients := req.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	body, err := json.Marshal(apiRequest{
		Prompt:      req.Prompt,
		Ingredients: ingredients,
		GroupID:     req.GroupID,
	})
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+streamPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("X-Request-Id", requestID)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger := c.logger.With("request_id", requestID)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("http: %w", ctx.Err())
		}
		logger.Warn("request failed", "error", err)
		return fridge.ErrorStream(fridge.EventError{Code: fridge.CodeNetwork, Message: err.Error()}), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		evt := parseHTTPError(resp)
		logger.Info("request rejected", "status", resp.StatusCode, "code", evt.Code)
		return fridge.ErrorStream(evt), nil
	}

	return newStream(resp.Body, logger), nil
}

// apiError accepts both {"error": {...}} and flat error bodies.
type apiError struct {
	Code             string   `json:"code"`
	Message          string   `json:"message"`
	RemainingQueries *float64 `json:"remainingQueries"`
	Error            *struct {
		Code             string   `json:"code"`
		Message          string   `json:"message"`
		RemainingQueries *float64 `json:"remainingQueries"`
	} `json:"error"`
}

// parseHTTPError maps a non-2xx response to a synthetic error event.
func parseHTTPError(resp *http.Response) fridge.EventError {
	evt := fridge.EventError{Code: statusCode(resp.StatusCode)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		evt.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return evt
	}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		evt.Message = strings.TrimSpace(string(body))
		if evt.Message == "" {
			evt.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return evt
	}
	code, msg, remaining := apiErr.Code, apiErr.Message, apiErr.RemainingQueries
	if apiErr.Error != nil {
		code, msg, remaining = apiErr.Error.Code, apiErr.Error.Message, apiErr.Error.RemainingQueries
	}
	if evt.Code == fridge.CodeHTTP && code != "" {
		evt.Code = code
	}
	evt.Message = msg
	if evt.Message == "" {
		evt.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	if remaining != nil {
		n := int(*remaining)
		evt.RemainingQueries = &n
	}
	return evt
}

func statusCode(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return fridge.CodeUnauthenticated
	case status == http.StatusTooManyRequests:
		return fridge.CodeQuotaExceeded
	case status >= 500:
		return fridge.CodeUpstreamUnavailable
	default:
		return fridge.CodeHTTP
	}
}
