// Package menu defines the catalog of spinnable menu items, the per-category
// selection and the structured critique returned by the advisor.
package menu

import "fmt"

// Category is one of the three meal slots.
type Category string

const (
	MainDish Category = "main_dish"
	Snack    Category = "snack"
	Drink    Category = "drink"
)

// Categories lists every category in display order.
var Categories = []Category{MainDish, Snack, Drink}

// ParseCategory validates a category key.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case MainDish, Snack, Drink:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q (want main_dish, snack or drink)", s)
}

// Label returns a human-readable category name.
func (c Category) Label() string {
	switch c {
	case MainDish:
		return "Main Dish"
	case Snack:
		return "Snack"
	case Drink:
		return "Drink"
	}
	return string(c)
}

type CaffeineLevel string

const (
	CaffeineNone   CaffeineLevel = "none"
	CaffeineLow    CaffeineLevel = "low"
	CaffeineMedium CaffeineLevel = "medium"
	CaffeineHigh   CaffeineLevel = "high"
)

func (c CaffeineLevel) valid() bool {
	switch c {
	case CaffeineNone, CaffeineLow, CaffeineMedium, CaffeineHigh:
		return true
	}
	return false
}

// HealthTag classifies an item for display.
type HealthTag string

const (
	TagHealthy     HealthTag = "healthy"
	TagNormal      HealthTag = "normal"
	TagHighCalorie HealthTag = "high_calorie"
	TagLowCarb     HealthTag = "low_carb"
	TagHighProtein HealthTag = "high_protein"
)

func (t HealthTag) valid() bool {
	switch t {
	case TagHealthy, TagNormal, TagHighCalorie, TagLowCarb, TagHighProtein:
		return true
	}
	return false
}

// MenuItem is a single selectable dish, snack or drink. Values are never
// mutated after construction; catalogs are replaced as a whole instead.
type MenuItem struct {
	ID            string        `json:"id" yaml:"id"`
	NameTH        string        `json:"name_th" yaml:"name_th"`
	NameEN        string        `json:"name_en" yaml:"name_en"`
	DescriptionTH string        `json:"description_th" yaml:"description_th"`
	CaloriesKcal  float64       `json:"calories_kcal" yaml:"calories_kcal"`
	ProteinG      float64       `json:"protein_g" yaml:"protein_g"`
	FatG          float64       `json:"fat_g" yaml:"fat_g"`
	CarbG         float64       `json:"carb_g" yaml:"carb_g"`
	SugarG        float64       `json:"sugar_g" yaml:"sugar_g"`
	FiberG        float64       `json:"fiber_g" yaml:"fiber_g"`
	CaffeineLevel CaffeineLevel `json:"caffeine_level" yaml:"caffeine_level"`
	HealthScore   float64       `json:"health_score" yaml:"health_score"`
	TypeTag       HealthTag     `json:"type_tag" yaml:"type_tag"`
}

// CategoryLists holds the three item lists of a catalog.
type CategoryLists struct {
	MainDish []MenuItem `json:"main_dish" yaml:"main_dish"`
	Snack    []MenuItem `json:"snack" yaml:"snack"`
	Drink    []MenuItem `json:"drink" yaml:"drink"`
}

// Catalog is the full set of selectable items, partitioned by category.
type Catalog struct {
	Version    string        `json:"version" yaml:"version"`
	Categories CategoryLists `json:"categories" yaml:"categories"`
}

// Alternative is a healthier swap suggested by the advisor.
type Alternative struct {
	FromCategory string `json:"from_category" yaml:"from_category"`
	NameTH       string `json:"name_th" yaml:"name_th"`
	ReasonTH     string `json:"reason_th" yaml:"reason_th"`
}

// Analysis is the structured critique of a selection.
type Analysis struct {
	SummaryTH             string        `json:"summary_th" yaml:"summary_th"`
	EvaluationTH          string        `json:"evaluation_th" yaml:"evaluation_th"`
	RiskFactorsTH         []string      `json:"risk_factors_th" yaml:"risk_factors_th"`
	AdviceTH              string        `json:"advice_th" yaml:"advice_th"`
	HealthScoreOverall    float64       `json:"health_score_overall" yaml:"health_score_overall"`
	SuggestedAlternatives []Alternative `json:"suggested_alternatives" yaml:"suggested_alternatives"`
}
