package menu

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCatalog is returned (wrapped) by Validate.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Items returns the item list for the given category.
func (c Catalog) Items(cat Category) []MenuItem {
	switch cat {
	case MainDish:
		return c.Categories.MainDish
	case Snack:
		return c.Categories.Snack
	case Drink:
		return c.Categories.Drink
	}
	return nil
}

// Lookup finds an item by id within one category.
func (c Catalog) Lookup(cat Category, id string) (MenuItem, bool) {
	for _, it := range c.Items(cat) {
		if it.ID == id {
			return it, true
		}
	}
	return MenuItem{}, false
}

// Contains reports whether item is a member of the category's list.
func (c Catalog) Contains(cat Category, item MenuItem) bool {
	found, ok := c.Lookup(cat, item.ID)
	return ok && found == item
}

// Clone returns a catalog whose lists do not share backing arrays with c.
func (c Catalog) Clone() Catalog {
	return Catalog{
		Version: c.Version,
		Categories: CategoryLists{
			MainDish: append([]MenuItem(nil), c.Categories.MainDish...),
			Snack:    append([]MenuItem(nil), c.Categories.Snack...),
			Drink:    append([]MenuItem(nil), c.Categories.Drink...),
		},
	}
}

// Size returns the total number of items across categories.
func (c Catalog) Size() int {
	return len(c.Categories.MainDish) + len(c.Categories.Snack) + len(c.Categories.Drink)
}

// Validate checks every item for well-formed enums, non-negative nutrition,
// a health score within [1,10] and catalog-wide id uniqueness.
func (c Catalog) Validate() error {
	var problems []string
	seen := make(map[string]Category)
	for _, cat := range Categories {
		for i, it := range c.Items(cat) {
			where := fmt.Sprintf("%s[%d]", cat, i)
			if strings.TrimSpace(it.ID) == "" {
				problems = append(problems, where+": empty id")
			} else if prev, dup := seen[it.ID]; dup {
				problems = append(problems, fmt.Sprintf("%s: duplicate id %q (also in %s)", where, it.ID, prev))
			} else {
				seen[it.ID] = cat
			}
			problems = append(problems, it.problems(where)...)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

func (it MenuItem) problems(where string) []string {
	var out []string
	nutrients := []struct {
		name string
		v    float64
	}{
		{"calories_kcal", it.CaloriesKcal},
		{"protein_g", it.ProteinG},
		{"fat_g", it.FatG},
		{"carb_g", it.CarbG},
		{"sugar_g", it.SugarG},
		{"fiber_g", it.FiberG},
	}
	for _, n := range nutrients {
		if n.v < 0 {
			out = append(out, fmt.Sprintf("%s: %s is negative", where, n.name))
		}
	}
	if !it.CaffeineLevel.valid() {
		out = append(out, fmt.Sprintf("%s: unknown caffeine_level %q", where, it.CaffeineLevel))
	}
	if !it.TypeTag.valid() {
		out = append(out, fmt.Sprintf("%s: unknown type_tag %q", where, it.TypeTag))
	}
	if it.HealthScore < 1 || it.HealthScore > 10 {
		out = append(out, fmt.Sprintf("%s: health_score %v outside [1,10]", where, it.HealthScore))
	}
	return out
}
