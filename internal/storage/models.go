package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Analysis statuses of a saved meal.
const (
	AnalysisNone    = "none"
	AnalysisPending = "pending"
	AnalysisDone    = "done"
	AnalysisFailed  = "failed"
)

// Meal is a saved selection. Item and analysis payloads are stored as JSON
// text so the schema does not follow every catalog field.
type Meal struct {
	ID             string
	CreatedAt      time.Time
	CatalogVersion string
	MainDishJSON   string
	SnackJSON      string
	DrinkJSON      string
	TotalKcal      float64
	TotalSugarG    float64
	AvgScore       float64
	DrinkCaffeine  string
	AnalysisJSON   string
	AnalysisStatus string
	Note           string
}

// MealStats aggregates saved meals.
type MealStats struct {
	Count             int
	AvgKcal           float64
	AvgSugarG         float64
	AvgScore          float64
	LowSugarMeals     int
	HighCaffeineMeals int
	Analyzed          int
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // one of the Job* statuses
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
