package engine

import (
	"context"

	"github.com/kalambet/nutriwheel/internal/ollama"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn in the provider-neutral form the advisor builds.
// Each engine converts it to its backend's wire shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PullProgress is one progress update while a local model downloads. Only
// Ollama pulls models, so its stream format is used as is.
type PullProgress = ollama.PullProgress

// Engine abstracts a chat-capable LLM backend (Gemini, OpenRouter or a local
// Ollama). The advisor depends on this interface instead of a concrete client.
type Engine interface {
	// Chat sends messages to model and returns the assistant's reply. An empty
	// model selects the engine's default. With jsonMode the backend is asked
	// to emit a single JSON document.
	Chat(ctx context.Context, model string, messages []Message, jsonMode bool) (string, error)

	// Name identifies the backend in logs and status output.
	Name() string

	// DefaultModel is used when the caller passes no model.
	DefaultModel() string
}

// LocalEngine is an Engine whose models live on this machine and may need
// pulling before first use.
type LocalEngine interface {
	Engine
	IsRunning(ctx context.Context) bool
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
