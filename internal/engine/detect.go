package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/nutriwheel/internal/gemini"
	"github.com/kalambet/nutriwheel/internal/proxy"
)

// Provider names accepted by Detect.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// ErrNoAPIKey is returned when the selected hosted provider has no key.
var ErrNoAPIKey = errors.New("api key not configured")

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Provider         string
	Model            string
	GeminiAPIKey     string
	OpenRouterAPIKey string
	OllamaBaseURL    string
}

// Detect builds the Engine named by cfg.Provider. An empty provider means
// gemini.
func Detect(cfg DetectConfig) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: %w (set NUTRIWHEEL_GEMINI_API_KEY)", ErrNoAPIKey)
		}
		return NewGeminiEngine(gemini.New(cfg.GeminiAPIKey), cfg.Model), nil
	case ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter: %w (set NUTRIWHEEL_OPENROUTER_API_KEY)", ErrNoAPIKey)
		}
		return NewOpenRouterEngine(proxy.NewClient(cfg.OpenRouterAPIKey), cfg.Model), nil
	case ProviderOllama:
		return NewOllamaEngine(cfg.OllamaBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported advisor provider %q (supported: gemini, openrouter, ollama)", cfg.Provider)
	}
}
