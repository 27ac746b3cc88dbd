package anthropic

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
	"github.com/fwojciec/fridge/reply"
)

// Interface compliance check.
var _ fridge.Transport = (*Client)(nil)

// Client implements [fridge.Transport] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens caps the length of the model's reply.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open sends a streaming request to the Messages API. HTTP and network
// failures are reported as a stream holding one error event; the returned
// error is non-nil only when the request could not be built or ctx was
// cancelled before a response arrived.
func (c *Client) Open(ctx context.Context, req fridge.Request) (fridge.Stream, error) {
	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			cancel()
			return nil, fmt.Errorf("anthropic: %w", ctxErr)
		}
		cancel()
		c.logger.Warn("anthropic request failed", "error", err)
		return fridge.ErrorStream(fridge.EventError{Code: fridge.CodeNetwork, Message: err.Error()}), nil
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		evt := parseHTTPError(resp)
		c.logger.Info("anthropic request rejected", "status", resp.StatusCode, "code", evt.Code)
		return fridge.ErrorStream(evt), nil
	}

	c.logger.Debug("anthropic stream opened", "model", c.model)
	return newStream(resp.Body, cancel, c.logger), nil
}

func (c *Client) buildRequestBody(req fridge.Request) ([]byte, error) {
	return json.Marshal(apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Stream:    true,
		System: []apiContentBlock{{
			Type:         "text",
			Text:         reply.SystemPrompt,
			CacheControl: &apiCacheControl{Type: "ephemeral"},
		}},
		Messages: []apiMessage{{
			Role:    "user",
			Content: []apiContentBlock{{Type: "text", Text: reply.UserPrompt(req)}},
		}},
	})
}

// parseHTTPError maps a non-200 response to a synthetic error event.
func parseHTTPError(resp *http.Response) fridge.EventError {
	evt := fridge.EventError{Code: statusCode(resp.StatusCode)}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		evt.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return evt
	}
	var apiErr sseError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		evt.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return evt
	}
	evt.Message = apiErr.Error.Type + ": " + apiErr.Error.Message
	return evt
}

func statusCode(status int) string {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fridge.CodeUnauthenticated
	case status == http.StatusTooManyRequests:
		return fridge.CodeQuotaExceeded
	case status == http.StatusRequestEntityTooLarge:
		return fridge.CodePromptTooLong
	case status >= 500:
		return fridge.CodeUpstreamUnavailable
	default:
		return fridge.CodeHTTP
	}
}

// errorCode maps an error event type from the stream to an error code.
func errorCode(typ string) string {
	switch typ {
	case "authentication_error", "permission_error":
		return fridge.CodeUnauthenticated
	case "rate_limit_error":
		return fridge.CodeQuotaExceeded
	case "request_too_large":
		return fridge.CodePromptTooLong
	default:
		return fridge.CodeUpstreamUnavailable
	}
}
