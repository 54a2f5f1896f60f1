// Package advisor asks a generative model for a fresh menu catalog and for a
// nutrition critique of a chosen meal.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/nutriwheel/internal/engine"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
)

// DefaultTimeout bounds a single advisor call.
const DefaultTimeout = 60 * time.Second

// Chatter is the subset of engine.Engine the advisor needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonMode bool) (string, error)
}

// Advisor turns chat completions into validated catalogs and analyses.
type Advisor struct {
	chat    Chatter
	model   string
	timeout time.Duration
}

// New creates an Advisor. An empty model defers to the engine default; a
// non-positive timeout uses DefaultTimeout.
func New(chat Chatter, model string, timeout time.Duration) *Advisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Advisor{chat: chat, model: model, timeout: timeout}
}

// GenerateCatalog requests a new catalog and validates it before returning.
func (a *Advisor) GenerateCatalog(ctx context.Context) (menu.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.chat.Chat(ctx, a.model, []engine.Message{
		{Role: engine.RoleUser, Content: catalogPrompt},
	}, true)
	if err != nil {
		return menu.Catalog{}, fmt.Errorf("generating catalog: %w", err)
	}

	c, err := ParseCatalog(raw)
	if err != nil {
		slog.Warn("generated catalog rejected", "error", err, "bytes", len(raw))
		return menu.Catalog{}, err
	}
	slog.Info("catalog generated", "version", c.Version, "items", c.Size(), "duration", time.Since(start))
	return c, nil
}

// Critique asks for an analysis of meal for profile p. drinks are offered
// as alternatives; only the first MaxDrinkCandidates are sent.
func (a *Advisor) Critique(ctx context.Context, p profile.Profile, meal menu.Meal, drinks []menu.MenuItem) (menu.Analysis, error) {
	payload, err := json.Marshal(BuildCritiqueInput(p, meal, drinks))
	if err != nil {
		return menu.Analysis{}, fmt.Errorf("encoding critique input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.chat.Chat(ctx, a.model, []engine.Message{
		{Role: engine.RoleSystem, Content: critiqueSystemPrompt},
		{Role: engine.RoleUser, Content: string(payload)},
	}, true)
	if err != nil {
		return menu.Analysis{}, fmt.Errorf("requesting critique: %w", err)
	}

	an, err := ParseAnalysis(raw)
	if err != nil {
		slog.Warn("critique rejected", "error", err, "bytes", len(raw))
		return menu.Analysis{}, err
	}
	return an, nil
}
