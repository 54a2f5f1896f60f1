package advisor

import (
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
)

const catalogPrompt = `Generate a food database for NutriWheel with:
- 15 main_dish items
- 10 snack items
- 10 drink items

Follow this JSON structure exactly:
{
  "version": "1.0",
  "categories": {
    "main_dish": [ ... ],
    "snack": [ ... ],
    "drink": [ ... ]
  }
}

Each item must have: id (unique string across all categories), name_th, name_en, description_th, calories_kcal, protein_g, fat_g, carb_g, sugar_g, fiber_g, caffeine_level (none|low|medium|high), health_score (1-10), type_tag (healthy|normal|high_calorie|low_carb|high_protein).
All nutrition values are non-negative numbers.
Mix Thai and international food. For plain water: 0 kcal, health_score 10.
Reply with the JSON document only.`

const critiqueSystemPrompt = `You are "Nutri Advisor", an AI nutrition coach.
Analyze the provided user profile and selected menu. When suggesting alternatives, prefer items from candidate_alternatives.

Output JSON:
{
  "summary_th": "Short summary of the meal in Thai",
  "evaluation_th": "ดี / พอใช้ / ควรระวัง + reason",
  "risk_factors_th": ["Risk 1", "Risk 2"],
  "advice_th": "Friendly advice in Thai",
  "health_score_overall": number (1-10),
  "suggested_alternatives": [
    { "from_category": "main_dish|snack|drink", "name_th": "string", "reason_th": "string" }
  ]
}`

// MaxDrinkCandidates bounds the candidate list sent with a critique.
const MaxDrinkCandidates = 5

// CritiqueInput is the user message of a critique request.
type CritiqueInput struct {
	UserProfile           profile.Profile `json:"user_profile"`
	SelectedMenu          SelectedMenu    `json:"selected_menu"`
	CandidateAlternatives Candidates      `json:"candidate_alternatives"`
}

// SelectedMenu carries the subset of item fields relevant to each category.
type SelectedMenu struct {
	MainDish MainDishFacts `json:"main_dish"`
	Snack    SnackFacts    `json:"snack"`
	Drink    DrinkFacts    `json:"drink"`
}

type MainDishFacts struct {
	NameTH       string  `json:"name_th"`
	CaloriesKcal float64 `json:"calories_kcal"`
	ProteinG     float64 `json:"protein_g"`
	FatG         float64 `json:"fat_g"`
	CarbG        float64 `json:"carb_g"`
	SugarG       float64 `json:"sugar_g"`
	HealthScore  float64 `json:"health_score"`
}

type SnackFacts struct {
	NameTH       string  `json:"name_th"`
	CaloriesKcal float64 `json:"calories_kcal"`
	SugarG       float64 `json:"sugar_g"`
	HealthScore  float64 `json:"health_score"`
}

type DrinkFacts struct {
	NameTH        string             `json:"name_th"`
	CaloriesKcal  float64            `json:"calories_kcal"`
	SugarG        float64            `json:"sugar_g"`
	CaffeineLevel menu.CaffeineLevel `json:"caffeine_level"`
	HealthScore   float64            `json:"health_score"`
}

// Candidates lists alternatives the model may suggest.
type Candidates struct {
	Drink []DrinkFacts `json:"drink"`
}

func drinkFacts(it menu.MenuItem) DrinkFacts {
	return DrinkFacts{
		NameTH:        it.NameTH,
		CaloriesKcal:  it.CaloriesKcal,
		SugarG:        it.SugarG,
		CaffeineLevel: it.CaffeineLevel,
		HealthScore:   it.HealthScore,
	}
}

// BuildCritiqueInput shapes the critique payload. At most MaxDrinkCandidates
// drinks are included, in catalog order.
func BuildCritiqueInput(p profile.Profile, meal menu.Meal, drinks []menu.MenuItem) CritiqueInput {
	in := CritiqueInput{
		UserProfile: p,
		SelectedMenu: SelectedMenu{
			MainDish: MainDishFacts{
				NameTH:       meal.MainDish.NameTH,
				CaloriesKcal: meal.MainDish.CaloriesKcal,
				ProteinG:     meal.MainDish.ProteinG,
				FatG:         meal.MainDish.FatG,
				CarbG:        meal.MainDish.CarbG,
				SugarG:       meal.MainDish.SugarG,
				HealthScore:  meal.MainDish.HealthScore,
			},
			Snack: SnackFacts{
				NameTH:       meal.Snack.NameTH,
				CaloriesKcal: meal.Snack.CaloriesKcal,
				SugarG:       meal.Snack.SugarG,
				HealthScore:  meal.Snack.HealthScore,
			},
			Drink: drinkFacts(meal.Drink),
		},
		CandidateAlternatives: Candidates{Drink: []DrinkFacts{}},
	}
	for i, d := range drinks {
		if i == MaxDrinkCandidates {
			break
		}
		in.CandidateAlternatives.Drink = append(in.CandidateAlternatives.Drink, drinkFacts(d))
	}
	return in
}
