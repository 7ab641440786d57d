package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"recurrent-agent/internal/auditlog"
	"recurrent-agent/internal/config"
)

// Response is the decoded structured value returned by the backend,
// typically a map or a slice.
type Response = any

var (
	// ErrProvider covers transport, auth, rate-limit and timeout failures
	// from the backend. Recoverable via bounded retry with backoff.
	ErrProvider = errors.New("llm provider error")

	// ErrMalformedResponse means generation succeeded but the reply could
	// not be parsed as structured data. Retried without backoff.
	ErrMalformedResponse = errors.New("malformed llm response")

	// ErrUnsupportedProvider is returned by the factory for an unknown type.
	ErrUnsupportedProvider = errors.New("unsupported llm provider type")
)

// Gateway is the capability interface to a text-generation backend. A
// successful call returns the structured value extracted from the reply and
// records the exchange to the audit log.
type Gateway interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt, chunk string) (Response, error)
}

// New builds a Gateway for the configured vendor. The audit logger may be
// nil, in which case exchanges are not recorded.
func New(cfg *config.LLMConfig, audit *auditlog.Logger) (Gateway, error) {
	apiKey, err := config.ResolveAPIKey(cfg.APIKey)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	jsonMode := false
	switch strings.ToLower(cfg.Type) {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		jsonMode = true
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Type, err)
	}

	return &langchainGateway{
		name:        strings.ToLower(cfg.Type),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		jsonMode:    jsonMode,
		audit:       audit,
	}, nil
}
