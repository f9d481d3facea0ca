package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/postpilot/internal/config"
	"github.com/postpilot/pkg/logger"
	"github.com/postpilot/pkg/ratelimit"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient talks to any OpenAI-compatible chat completion API (OpenAI, Groq)
type OpenAIClient struct {
	cl          *openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature float64
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewOpenAIClient creates a chat completion client. Groq is selected by
// provider name unless base_url overrides it.
func NewOpenAIClient(cfg config.LLMConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case cfg.Provider == config.ProviderGroq:
		clientConfig.BaseURL = GroqBaseURL
	}
	clientConfig.HTTPClient = &http.Client{}

	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderOpenAI
	}

	return &OpenAIClient{
		cl:          openai.NewClientWithConfig(clientConfig),
		provider:    provider,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		rateLimiter: limiter,
		log:         log.WithComponent("ai").WithSource("llm", provider),
	}
}

// Model returns the configured model identifier
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends a single user message and returns the first choice's content
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
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
		Msg("Sending chat completion request")

	resp, err := c.cl.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Chat completion error")
		return "", &TransportError{Provider: c.provider, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &TransportError{Provider: c.provider, Err: fmt.Errorf("empty choices in response")}
	}

	c.log.Debug().
		Int("input_tokens", resp.Usage.PromptTokens).
		Int("output_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("Received chat completion")

	return resp.Choices[0].Message.Content, nil
}
