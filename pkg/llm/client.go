package llm

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/config"
)

// Client produces a completion for a prompt. The query service treats the
// implementation as an untrusted collaborator: whatever comes back is
// validated before anything touches the event store.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAI is the production Client backed by an OpenAI-compatible chat
// completion API. The base URL is configurable so self-hosted gateways can
// stand in for the hosted service.
type OpenAI struct {
	client  *openai.Client
	model   string
	maxTok  int
	timeout time.Duration
}

// NewOpenAI builds a client from configuration.
func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		maxTok:  cfg.MaxTokens,
		timeout: cfg.Timeout,
	}
}

// Complete sends a single-turn chat completion. The per-call timeout is
// deliberately shorter than the handler deadline so a stalled provider
// surfaces as a generation error instead of a client-visible request
// timeout.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.maxTok,
		Temperature: 0,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", api.NewGenerationError("completion request failed: " + err.Error())
	}
	if len(resp.Choices) == 0 {
		return "", api.NewGenerationError("completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", api.NewGenerationError("completion returned empty content")
	}
	return content, nil
}
