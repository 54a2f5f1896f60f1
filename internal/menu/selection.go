package menu

// Selection holds the chosen item per category; nil means none chosen.
type Selection struct {
	MainDish *MenuItem `json:"main_dish" yaml:"main_dish"`
	Snack    *MenuItem `json:"snack" yaml:"snack"`
	Drink    *MenuItem `json:"drink" yaml:"drink"`
}

// Get returns the selected item for cat, if any.
func (s Selection) Get(cat Category) (MenuItem, bool) {
	var p *MenuItem
	switch cat {
	case MainDish:
		p = s.MainDish
	case Snack:
		p = s.Snack
	case Drink:
		p = s.Drink
	}
	if p == nil {
		return MenuItem{}, false
	}
	return *p, true
}

// With returns a copy of s with cat set to item.
func (s Selection) With(cat Category, item MenuItem) Selection {
	switch cat {
	case MainDish:
		s.MainDish = &item
	case Snack:
		s.Snack = &item
	case Drink:
		s.Drink = &item
	}
	return s
}

// Complete reports whether every category has a selection.
func (s Selection) Complete() bool {
	return s.MainDish != nil && s.Snack != nil && s.Drink != nil
}

// Meal returns the three selected items when the selection is complete.
func (s Selection) Meal() (Meal, bool) {
	if !s.Complete() {
		return Meal{}, false
	}
	return Meal{MainDish: *s.MainDish, Snack: *s.Snack, Drink: *s.Drink}, true
}

// Meal is a complete selection: one item per category.
type Meal struct {
	MainDish MenuItem `json:"main_dish" yaml:"main_dish"`
	Snack    MenuItem `json:"snack" yaml:"snack"`
	Drink    MenuItem `json:"drink" yaml:"drink"`
}

// Items returns the meal's items in category order.
func (m Meal) Items() []MenuItem {
	return []MenuItem{m.MainDish, m.Snack, m.Drink}
}

// TotalCalories sums calories across the meal.
func (m Meal) TotalCalories() float64 {
	return m.MainDish.CaloriesKcal + m.Snack.CaloriesKcal + m.Drink.CaloriesKcal
}

// TotalSugar sums sugar grams across the meal.
func (m Meal) TotalSugar() float64 {
	return m.MainDish.SugarG + m.Snack.SugarG + m.Drink.SugarG
}

// AverageScore is the mean health score of the three items.
func (m Meal) AverageScore() float64 {
	return (m.MainDish.HealthScore + m.Snack.HealthScore + m.Drink.HealthScore) / 3
}
