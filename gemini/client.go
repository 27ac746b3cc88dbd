package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/reply"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ fridge.Transport = (*Client)(nil)

// Client implements [fridge.Transport] for the Google Gemini API.
type Client struct {
	client    *genai.Client
	model     string
	maxTokens int32
	logger    *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens caps the length of the model's reply.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = int32(n) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client:    gc,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Open starts a streaming generation. The stream owns a derived context that
// Close cancels.
func (c *Client) Open(ctx context.Context, req fridge.Request) (fridge.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: reply.UserPrompt(req)}},
	}}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens:   c.maxTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: reply.SystemPrompt}},
		},
	}
	seq := c.client.Models.GenerateContentStream(ctx, c.model, contents, config)
	c.logger.Debug("gemini stream opened", "model", c.model)
	return newStream(seq, cancel, c.logger), nil
}
