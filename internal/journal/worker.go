package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/storage"
)

// JobStore abstracts the job queue and the meal rows the worker updates.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) (bool, error)
	GetMeal(id string) (storage.Meal, error)
	SetMealAnalysis(id, analysisJSON, status string) error
}

// Critic produces an analysis of a meal.
type Critic interface {
	Critique(ctx context.Context, p profile.Profile, meal menu.Meal, drinks []menu.MenuItem) (menu.Analysis, error)
}

// ProfileSource supplies the profile for critiques.
type ProfileSource interface {
	GetProfile() (profile.Profile, error)
}

// DrinkSource returns the drinks offered as alternatives, usually the live
// catalog's drink list.
type DrinkSource func() []menu.MenuItem

// Worker processes meal_critique jobs from the SQLite job queue.
type Worker struct {
	store       JobStore
	critic      Critic
	profiles    ProfileSource
	drinks      DrinkSource
	poll        time.Duration
	concurrency int
	logger      *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0 it defaults to 2s.
// drinks may be nil.
func NewWorker(store JobStore, critic Critic, profiles ProfileSource, drinks DrinkSource, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if drinks == nil {
		drinks = func() []menu.MenuItem { return nil }
	}
	return &Worker{
		store:       store,
		critic:      critic,
		profiles:    profiles,
		drinks:      drinks,
		poll:        pollInterval,
		concurrency: 2,
		logger:      slog.Default().With("component", "journal"),
	}
}

// Run drains due jobs, then waits for the poll interval, until ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := w.Drain(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if n > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// Drain claims every due job and critiques them concurrently. It returns
// the number of jobs processed, successfully or not.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	n := 0
	for ctx.Err() == nil {
		job, err := w.store.ClaimNextJob([]string{JobTypeCritique})
		if err != nil {
			_ = g.Wait()
			return n, fmt.Errorf("claiming job: %w", err)
		}
		if job == nil {
			break
		}
		n++
		g.Go(func() error {
			return w.finish(job, w.processJob(gCtx, job))
		})
	}
	return n, g.Wait()
}

// RunOnce claims and processes a single meal_critique job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeCritique})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}
	return true, w.finish(job, w.processJob(ctx, job))
}

func (w *Worker) finish(job *storage.Job, procErr error) error {
	if procErr == nil {
		if err := w.store.CompleteJob(job.ID); err != nil {
			return fmt.Errorf("completing job %s: %w", job.ID, err)
		}
		return nil
	}

	w.logger.Warn("job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", procErr)
	final, err := w.store.FailJob(job.ID, procErr.Error())
	if err != nil {
		w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", err)
		return nil
	}
	if final {
		var p critiquePayload
		if json.Unmarshal([]byte(job.PayloadJSON), &p) == nil && p.MealID != "" {
			if err := w.store.SetMealAnalysis(p.MealID, "", storage.AnalysisFailed); err != nil {
				w.logger.Warn("marking meal critique failed", "meal_id", p.MealID, "error", err)
			}
		}
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload critiquePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	row, err := w.store.GetMeal(payload.MealID)
	if err != nil {
		return fmt.Errorf("loading meal %s: %w", payload.MealID, err)
	}
	entry, err := toEntry(row)
	if err != nil {
		return err
	}

	p := profile.Default()
	if w.profiles != nil {
		if got, err := w.profiles.GetProfile(); err == nil {
			p = got
		} else {
			w.logger.Warn("loading profile failed, using default", "error", err)
		}
	}

	a, err := w.critic.Critique(ctx, p, entry.Meal, w.drinks())
	if err != nil {
		return fmt.Errorf("critiquing meal: %w", err)
	}
	raw, err := encode(a)
	if err != nil {
		return err
	}
	if err := w.store.SetMealAnalysis(row.ID, raw, storage.AnalysisDone); err != nil {
		return fmt.Errorf("storing analysis: %w", err)
	}
	w.logger.Info("meal critiqued", "meal_id", row.ID, "score", a.HealthScoreOverall)
	return nil
}
