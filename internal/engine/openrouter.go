package engine

import (
	"context"

	"github.com/kalambet/nutriwheel/internal/proxy"
)

// DefaultOpenRouterModel routes to Gemini through OpenRouter.
const DefaultOpenRouterModel = "google/gemini-2.5-flash"

// OpenRouterEngine adapts proxy.Client.
type OpenRouterEngine struct {
	client *proxy.Client
	model  string
}

func NewOpenRouterEngine(client *proxy.Client, model string) *OpenRouterEngine {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouterEngine{client: client, model: model}
}

func (e *OpenRouterEngine) Name() string         { return "openrouter" }
func (e *OpenRouterEngine) DefaultModel() string { return e.model }

func (e *OpenRouterEngine) Chat(ctx context.Context, model string, messages []Message, jsonMode bool) (string, error) {
	if model == "" {
		model = e.model
	}
	req := proxy.ChatRequest{Model: model, Messages: make([]proxy.Message, len(messages))}
	for i, m := range messages {
		req.Messages[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	if jsonMode {
		req.ResponseFormat = &proxy.ResponseFormat{Type: "json_object"}
	}
	return e.client.Complete(ctx, req)
}
