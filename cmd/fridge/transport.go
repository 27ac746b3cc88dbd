package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/anthropic"
	"github.com/fwojciec/fridge/gemini"
	fridgehttp "github.com/fwojciec/fridge/http"
)

const (
	backendHTTP      = "http"
	backendGemini    = "gemini"
	backendAnthropic = "anthropic"
)

// resolveBackend picks the backend name, auto-detecting it from the
// configured credentials when none was requested.
func resolveBackend(cfg Config) (string, error) {
	if cfg.Backend != "" {
		return cfg.Backend, nil
	}
	var found, vars []string
	if cfg.APIURL != "" {
		found, vars = append(found, backendHTTP), append(vars, "FRIDGE_API_URL")
	}
	if cfg.GeminiAPIKey != "" {
		found, vars = append(found, backendGemini), append(vars, "GEMINI_API_KEY")
	}
	if cfg.AnthropicAPIKey != "" {
		found, vars = append(found, backendAnthropic), append(vars, "ANTHROPIC_API_KEY")
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no backend configured: set FRIDGE_API_URL, GEMINI_API_KEY or ANTHROPIC_API_KEY (or use --backend and --api-url)")
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%s are set: use --backend to select", strings.Join(vars, " and "))
	}
}

// resolveTransport constructs the transport for the configured backend.
func resolveTransport(ctx context.Context, cfg Config, logger *slog.Logger) (fridge.Transport, error) {
	backend, err := resolveBackend(cfg)
	if err != nil {
		return nil, err
	}
	switch backend {
	case backendHTTP:
		if cfg.APIURL == "" {
			return nil, fmt.Errorf("FRIDGE_API_URL not set (use --api-url flag or environment variable)")
		}
		opts := []fridgehttp.Option{fridgehttp.WithLogger(logger)}
		if cfg.APIToken != "" {
			opts = append(opts, fridgehttp.WithToken(cfg.APIToken))
		}
		return fridgehttp.New(cfg.APIURL, opts...), nil
	case backendGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set (use the environment variable or config file)")
		}
		opts := []gemini.Option{gemini.WithLogger(logger)}
		if cfg.GeminiModel != "" {
			opts = append(opts, gemini.WithModel(cfg.GeminiModel))
		}
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	case backendAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set (use the environment variable or config file)")
		}
		opts := []anthropic.Option{anthropic.WithLogger(logger)}
		if cfg.AnthropicModel != "" {
			opts = append(opts, anthropic.WithModel(cfg.AnthropicModel))
		}
		return anthropic.New(cfg.AnthropicAPIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be \"http\", \"gemini\" or \"anthropic\"", backend)
	}
}
