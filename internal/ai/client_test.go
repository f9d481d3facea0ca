package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/postpilot/internal/config"
	"github.com/postpilot/pkg/logger"
	"github.com/postpilot/pkg/ratelimit"
)

func anthropicServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "claude-test" {
			t.Errorf("unexpected model %v", req["model"])
		}
		if req["temperature"] != 0.3 {
			t.Errorf("unexpected temperature %v", req["temperature"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func anthropicConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.ProviderAnthropic,
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "claude-test",
		MaxTokens:   256,
		Temperature: 0.3,
	}
}

func TestClientCompleteReturnsRawText(t *testing.T) {
	var calls int32
	body := `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [
			{"type": "text", "text": "I think this is: "},
			{"type": "text", "text": "{\"line_count\": 1}"}
		],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`
	server := anthropicServer(t, http.StatusOK, body, &calls)
	defer server.Close()

	client := NewClient(anthropicConfig(server.URL), ratelimit.New(0, 1), logger.Nop())
	out, err := client.Complete(context.Background(), "describe this post")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `I think this is: {"line_count": 1}` {
		t.Fatalf("unexpected output %q", out)
	}
	if calls != 1 {
		t.Fatalf("expected one round trip, got %d", calls)
	}
}

func TestClientCompleteTransportErrorNotRetried(t *testing.T) {
	var calls int32
	body := `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`
	server := anthropicServer(t, http.StatusInternalServerError, body, &calls)
	defer server.Close()

	client := NewClient(anthropicConfig(server.URL), nil, logger.Nop())
	_, err := client.Complete(context.Background(), "prompt")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Provider != "anthropic" {
		t.Fatalf("unexpected provider %q", transportErr.Provider)
	}
	if calls != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}

func TestClientRejectsEmptyPrompt(t *testing.T) {
	client := NewClient(anthropicConfig("http://127.0.0.1:1"), nil, logger.Nop())
	if _, err := client.Complete(context.Background(), "  \n"); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestNewCompleterSelectsProvider(t *testing.T) {
	cfg := anthropicConfig("")
	c, err := NewCompleter(cfg, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	if _, ok := c.(*Client); !ok {
		t.Fatalf("expected anthropic client, got %T", c)
	}

	cfg.Provider = config.ProviderGroq
	c, err = NewCompleter(cfg, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Fatalf("expected openai-compatible client, got %T", c)
	}

	cfg.Provider = "unknown"
	if _, err := NewCompleter(cfg, nil, logger.Nop()); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}
