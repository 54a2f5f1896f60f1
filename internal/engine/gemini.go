package engine

import (
	"context"
	"strings"

	"github.com/kalambet/nutriwheel/internal/gemini"
)

// GeminiEngine adapts gemini.Client. System messages become the request's
// systemInstruction; assistant turns are sent with the "model" role.
type GeminiEngine struct {
	client *gemini.Client
	model  string
}

func NewGeminiEngine(client *gemini.Client, model string) *GeminiEngine {
	if model == "" {
		model = gemini.DefaultModel
	}
	return &GeminiEngine{client: client, model: model}
}

func (e *GeminiEngine) Name() string         { return "gemini" }
func (e *GeminiEngine) DefaultModel() string { return e.model }

func (e *GeminiEngine) Chat(ctx context.Context, model string, messages []Message, jsonMode bool) (string, error) {
	if model == "" {
		model = e.model
	}
	return e.client.GenerateContent(ctx, model, geminiRequest(messages, jsonMode))
}

func geminiRequest(messages []Message, jsonMode bool) gemini.Request {
	var req gemini.Request
	var system []string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			req.Contents = append(req.Contents, gemini.Content{Role: "model", Parts: []gemini.Part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, gemini.Content{Role: "user", Parts: []gemini.Part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	if jsonMode {
		req.GenerationConfig = &gemini.GenerationConfig{ResponseMimeType: "application/json"}
	}
	return req
}
