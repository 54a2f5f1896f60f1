package engine

import (
	"context"

	"github.com/kalambet/nutriwheel/internal/ollama"
)

// DefaultOllamaModel is pulled on startup when no advisor.model is set.
const DefaultOllamaModel = "llama3.1"

// OllamaEngine runs the advisor against a local Ollama server.
type OllamaEngine struct {
	*ollama.Client
	model string
}

func NewOllamaEngine(baseURL, model string) *OllamaEngine {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEngine{Client: ollama.New(baseURL), model: model}
}

func (e *OllamaEngine) Name() string         { return "ollama" }
func (e *OllamaEngine) DefaultModel() string { return e.model }

// Chat shadows the embedded client's Chat to accept engine messages and
// fall back to the configured model.
func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, jsonMode bool) (string, error) {
	if model == "" {
		model = e.model
	}
	turns := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ollama.Message(m))
	}
	return e.Client.Chat(ctx, model, turns, jsonMode)
}
