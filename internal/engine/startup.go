package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that a local engine is reachable and its default model
// is available, pulling it with progress written to w when missing. The
// model is then warmed with a trivial request; a failed warm-up is reported
// but not returned. Hosted engines are returned as ready without probing.
func EnsureReady(ctx context.Context, e Engine, w io.Writer) error {
	local, ok := e.(LocalEngine)
	if !ok {
		return nil
	}
	if !local.IsRunning(ctx) {
		return fmt.Errorf("%s is not running; start it with: ollama serve", e.Name())
	}

	model := e.DefaultModel()
	if local.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
	} else {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := local.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, float64(p.Completed)/float64(p.Total)*100)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := e.Chat(warmCtx, model, []Message{{Role: RoleUser, Content: "ping"}}, false); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", model)
	}
	return nil
}
