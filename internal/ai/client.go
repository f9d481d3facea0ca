package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/postpilot/internal/config"
	"github.com/postpilot/pkg/logger"
	"github.com/postpilot/pkg/ratelimit"
)

// Completer sends one rendered prompt to a model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewCompleter builds the client for the configured provider
func NewCompleter(cfg config.LLMConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewClient(cfg, limiter, log), nil
	case config.ProviderGroq, config.ProviderOpenAI:
		return NewOpenAIClient(cfg, limiter, log), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// Client wraps the Anthropic SDK client
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new Anthropic client. SDK retries are disabled so each
// Complete is at most one round trip.
func NewClient(cfg config.LLMConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(append(base, opts...)...)

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		rateLimiter: limiter,
		log:         log.WithComponent("ai"),
	}
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single user message to Claude and returns the text of the reply
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterLLM); err != nil {
			return "", fmt.Errorf("rate limit error: %w", err)
		}
	}

	c.log.Debug().
		Str("model", c.model).
		Int("max_tokens", c.maxTokens).
		Int("prompt_length", len(prompt)).
		Msg("Sending request to Claude")

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Claude API error")
		return "", &TransportError{Provider: "anthropic", Err: err}
	}

	var response strings.Builder
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response.WriteString(textBlock.Text)
		}
	}

	c.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Str("stop_reason", string(message.StopReason)).
		Msg("Received Claude response")

	return response.String(), nil
}
