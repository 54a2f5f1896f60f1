package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/nutriwheel/internal/menu"
)

// ErrMalformedResponse is returned when the model output cannot be used.
var ErrMalformedResponse = errors.New("malformed advisor response")

// stripFences removes a surrounding markdown code fence and any prose
// before the first '{' or after the last '}'.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// ParseCatalog decodes and normalizes a generated catalog, then validates it.
// A catalog with no items at all is rejected.
func ParseCatalog(raw string) (menu.Catalog, error) {
	var c menu.Catalog
	if err := json.Unmarshal([]byte(stripFences(raw)), &c); err != nil {
		return menu.Catalog{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if c.Size() == 0 {
		return menu.Catalog{}, fmt.Errorf("%w: catalog has no items", ErrMalformedResponse)
	}
	if strings.TrimSpace(c.Version) == "" {
		c.Version = "generated"
	}
	for _, cat := range menu.Categories {
		items := c.Items(cat)
		for i := range items {
			normalizeItem(&items[i])
		}
	}
	if err := c.Validate(); err != nil {
		return menu.Catalog{}, err
	}
	return c, nil
}

func normalizeItem(it *menu.MenuItem) {
	it.ID = strings.TrimSpace(it.ID)
	it.CaffeineLevel = menu.CaffeineLevel(strings.ToLower(strings.TrimSpace(string(it.CaffeineLevel))))
	if it.CaffeineLevel == "" {
		it.CaffeineLevel = menu.CaffeineNone
	}
	it.TypeTag = menu.HealthTag(strings.ToLower(strings.TrimSpace(string(it.TypeTag))))
	if it.TypeTag == "" {
		it.TypeTag = menu.TagNormal
	}
}

// ParseAnalysis decodes a critique. The overall score is clamped to [1,10];
// a response without any text is rejected.
func ParseAnalysis(raw string) (menu.Analysis, error) {
	var a menu.Analysis
	if err := json.Unmarshal([]byte(stripFences(raw)), &a); err != nil {
		return menu.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(a.SummaryTH) == "" && strings.TrimSpace(a.EvaluationTH) == "" && strings.TrimSpace(a.AdviceTH) == "" {
		return menu.Analysis{}, fmt.Errorf("%w: analysis has no text", ErrMalformedResponse)
	}
	a.HealthScoreOverall = clamp(a.HealthScoreOverall, 1, 10)
	if a.RiskFactorsTH == nil {
		a.RiskFactorsTH = []string{}
	}
	if a.SuggestedAlternatives == nil {
		a.SuggestedAlternatives = []menu.Alternative{}
	}
	return a, nil
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
