// Package journal keeps a history of saved meals, aggregates it, and
// critiques saved meals in the background when they were stored without an
// analysis.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/storage"
)

// JobTypeCritique is the queue type for deferred critiques.
const JobTypeCritique = "meal_critique"

var ErrIncompleteSelection = errors.New("a meal needs one item per category")

// MealStore is the storage used by Service.
type MealStore interface {
	SaveMeal(m storage.Meal) error
	GetMeal(id string) (storage.Meal, error)
	ListMeals(limit int) ([]storage.Meal, error)
	DeleteMeal(id string) error
	GetMealStats(since time.Time) (storage.MealStats, error)
	EnqueueJob(job storage.Job) error
}

// Draft is a meal about to be saved.
type Draft struct {
	Selection      menu.Selection
	CatalogVersion string
	Analysis       *menu.Analysis
	Note           string
}

// Entry is a saved meal.
type Entry struct {
	ID             string         `json:"id" yaml:"id"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
	CatalogVersion string         `json:"catalog_version" yaml:"catalog_version"`
	Meal           menu.Meal      `json:"meal" yaml:"meal"`
	TotalKcal      float64        `json:"total_kcal" yaml:"total_kcal"`
	TotalSugarG    float64        `json:"total_sugar_g" yaml:"total_sugar_g"`
	AvgScore       float64        `json:"avg_score" yaml:"avg_score"`
	AnalysisStatus string         `json:"analysis_status" yaml:"analysis_status"`
	Analysis       *menu.Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Note           string         `json:"note,omitempty" yaml:"note,omitempty"`
}

// Stats summarizes saved meals.
type Stats struct {
	Since             time.Time `json:"since" yaml:"since"`
	Count             int       `json:"count" yaml:"count"`
	AvgKcal           float64   `json:"avg_kcal" yaml:"avg_kcal"`
	AvgSugarG         float64   `json:"avg_sugar_g" yaml:"avg_sugar_g"`
	AvgScore          float64   `json:"avg_score" yaml:"avg_score"`
	LowSugarMeals     int       `json:"low_sugar_meals" yaml:"low_sugar_meals"`
	HighCaffeineMeals int       `json:"high_caffeine_meals" yaml:"high_caffeine_meals"`
	Analyzed          int       `json:"analyzed" yaml:"analyzed"`
}

// Service saves and reads journal entries.
type Service struct {
	store MealStore
	now   func() time.Time
	newID func() string
}

func NewService(store MealStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Save stores a complete selection. Without an attached analysis a
// critique job is queued and the entry starts out pending.
func (s *Service) Save(ctx context.Context, d Draft) (Entry, error) {
	meal, ok := d.Selection.Meal()
	if !ok {
		return Entry{}, ErrIncompleteSelection
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	row := storage.Meal{
		ID:             s.newID(),
		CreatedAt:      s.now().UTC().Truncate(time.Second),
		CatalogVersion: d.CatalogVersion,
		TotalKcal:      meal.TotalCalories(),
		TotalSugarG:    meal.TotalSugar(),
		AvgScore:       meal.AverageScore(),
		DrinkCaffeine:  string(meal.Drink.CaffeineLevel),
		Note:           d.Note,
	}
	var err error
	if row.MainDishJSON, err = encode(meal.MainDish); err != nil {
		return Entry{}, err
	}
	if row.SnackJSON, err = encode(meal.Snack); err != nil {
		return Entry{}, err
	}
	if row.DrinkJSON, err = encode(meal.Drink); err != nil {
		return Entry{}, err
	}
	if d.Analysis != nil {
		if row.AnalysisJSON, err = encode(d.Analysis); err != nil {
			return Entry{}, err
		}
		row.AnalysisStatus = storage.AnalysisDone
	} else {
		row.AnalysisStatus = storage.AnalysisPending
	}

	if err := s.store.SaveMeal(row); err != nil {
		return Entry{}, fmt.Errorf("saving meal: %w", err)
	}

	if d.Analysis == nil {
		payload, _ := json.Marshal(critiquePayload{MealID: row.ID})
		job := storage.Job{ID: s.newID(), Type: JobTypeCritique, PayloadJSON: string(payload)}
		if err := s.store.EnqueueJob(job); err != nil {
			// The meal is saved either way; it simply stays without a critique.
			slog.Warn("queueing meal critique failed", "meal_id", row.ID, "error", err)
			row.AnalysisStatus = storage.AnalysisNone
		}
	}

	slog.Info("meal saved", "meal_id", row.ID, "kcal", row.TotalKcal, "analysis", row.AnalysisStatus)
	return toEntry(row)
}

// Get returns one entry or storage.ErrNotFound.
func (s *Service) Get(id string) (Entry, error) {
	row, err := s.store.GetMeal(id)
	if err != nil {
		return Entry{}, err
	}
	return toEntry(row)
}

// List returns up to limit entries, newest first.
func (s *Service) List(limit int) ([]Entry, error) {
	rows, err := s.store.ListMeals(limit)
	if err != nil {
		return nil, fmt.Errorf("listing meals: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e, err := toEntry(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) Delete(id string) error {
	return s.store.DeleteMeal(id)
}

// Stats aggregates entries saved in the last `days` days; days <= 0 covers
// the whole journal.
func (s *Service) Stats(days int) (Stats, error) {
	var since time.Time
	if days > 0 {
		since = s.now().UTC().AddDate(0, 0, -days)
	}
	st, err := s.store.GetMealStats(since)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Since:             since,
		Count:             st.Count,
		AvgKcal:           st.AvgKcal,
		AvgSugarG:         st.AvgSugarG,
		AvgScore:          st.AvgScore,
		LowSugarMeals:     st.LowSugarMeals,
		HighCaffeineMeals: st.HighCaffeineMeals,
		Analyzed:          st.Analyzed,
	}, nil
}

type critiquePayload struct {
	MealID string `json:"meal_id"`
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding meal: %w", err)
	}
	return string(b), nil
}

func toEntry(r storage.Meal) (Entry, error) {
	e := Entry{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		CatalogVersion: r.CatalogVersion,
		TotalKcal:      r.TotalKcal,
		TotalSugarG:    r.TotalSugarG,
		AvgScore:       r.AvgScore,
		AnalysisStatus: r.AnalysisStatus,
		Note:           r.Note,
	}
	for _, f := range []struct {
		raw string
		dst *menu.MenuItem
	}{
		{r.MainDishJSON, &e.Meal.MainDish},
		{r.SnackJSON, &e.Meal.Snack},
		{r.DrinkJSON, &e.Meal.Drink},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return Entry{}, fmt.Errorf("decoding meal %s: %w", r.ID, err)
		}
	}
	if r.AnalysisJSON != "" {
		var a menu.Analysis
		if err := json.Unmarshal([]byte(r.AnalysisJSON), &a); err != nil {
			return Entry{}, fmt.Errorf("decoding analysis of meal %s: %w", r.ID, err)
		}
		e.Analysis = &a
	}
	return e, nil
}
