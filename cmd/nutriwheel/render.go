package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kalambet/nutriwheel/internal/journal"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/session"
	"github.com/kalambet/nutriwheel/internal/spin"
)

func categoryIcon(c menu.Category) string {
	switch c {
	case menu.MainDish:
		return "🍛"
	case menu.Snack:
		return "🍪"
	case menu.Drink:
		return "🥤"
	}
	return "•"
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 8:
		return colorGreen
	case score >= 5:
		return colorYellow
	}
	return colorRed
}

func itemLine(it menu.MenuItem) string {
	name := it.NameTH
	if it.NameEN != "" {
		name += " (" + it.NameEN + ")"
	}
	facts := fmt.Sprintf("%.0f kcal · sugar %.0fg", it.CaloriesKcal, it.SugarG)
	if it.CaffeineLevel != "" && it.CaffeineLevel != menu.CaffeineNone {
		facts += " · caffeine " + string(it.CaffeineLevel)
	}
	score := colorize(scoreColor(it.HealthScore), fmt.Sprintf("score %.0f", it.HealthScore))
	return fmt.Sprintf("%s  %s  %s", name, colorize(colorFaint, facts), score)
}

func renderSelection(w io.Writer, sel menu.Selection) {
	for _, cat := range menu.Categories {
		label := colorize(colorBold, fmt.Sprintf("%-9s", cat.Label()))
		if it, ok := sel.Get(cat); ok {
			fmt.Fprintf(w, "%s %s %s\n", categoryIcon(cat), label, itemLine(it))
		} else {
			fmt.Fprintf(w, "%s %s %s\n", categoryIcon(cat), label, colorize(colorFaint, "-"))
		}
	}
	if meal, ok := sel.Meal(); ok {
		fmt.Fprintf(w, "   %s %.0f kcal · sugar %.0fg · avg score %.1f\n",
			colorize(colorBold, "Total    "), meal.TotalCalories(), meal.TotalSugar(), meal.AverageScore())
	}
}

func renderCatalog(w io.Writer, c menu.Catalog) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Menu"), c.Version)
	for _, cat := range menu.Categories {
		items := c.Items(cat)
		fmt.Fprintf(w, "\n%s %s (%d)\n", categoryIcon(cat), colorize(colorBold, cat.Label()), len(items))
		for _, it := range items {
			fmt.Fprintf(w, "  %-4s %s\n", it.ID, itemLine(it))
		}
	}
}

func renderAnalysis(w io.Writer, a menu.Analysis) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Overall score:"),
		colorize(scoreColor(a.HealthScoreOverall), fmt.Sprintf("%.0f/10", a.HealthScoreOverall)))
	if a.SummaryTH != "" {
		fmt.Fprintf(w, "\n%s\n", a.SummaryTH)
	}
	if a.EvaluationTH != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", colorize(colorBold, "Evaluation"), a.EvaluationTH)
	}
	if len(a.RiskFactorsTH) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Risk factors"))
		for _, r := range a.RiskFactorsTH {
			fmt.Fprintf(w, "  %s %s\n", colorize(colorRed, "!"), r)
		}
	}
	if a.AdviceTH != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", colorize(colorBold, "Advice"), a.AdviceTH)
	}
	if len(a.SuggestedAlternatives) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Try instead"))
		for _, alt := range a.SuggestedAlternatives {
			fmt.Fprintf(w, "  %s %s: %s\n", colorize(colorGreen, "→"), alt.NameTH, alt.ReasonTH)
		}
	}
}

func renderAnalysisState(w io.Writer, st session.AnalysisState) {
	switch st.Status {
	case session.AnalysisReady:
		if st.Result != nil {
			renderAnalysis(w, *st.Result)
		}
	case session.AnalysisFailed:
		fmt.Fprintf(w, "%s %s\n", colorize(colorRed, "last analysis failed:"), st.Error)
	case session.AnalysisPending:
		fmt.Fprintln(w, "analysis in progress")
	default:
		fmt.Fprintln(w, "no analysis yet")
	}
}

func renderFeedback(w io.Writer, msgs []journal.Message) {
	for _, m := range msgs {
		c := colorGreen
		if m.Kind == journal.KindHighCaffeine {
			c = colorYellow
		}
		fmt.Fprintln(w, colorize(c, m.Text))
	}
}

func renderEntry(w io.Writer, e journal.Entry) {
	fmt.Fprintf(w, "%s %s  %s\n", colorize(colorBold, "Meal"), e.ID, colorize(colorFaint, e.CreatedAt.Local().Format("2006-01-02 15:04")))
	if e.Note != "" {
		fmt.Fprintf(w, "Note: %s\n", e.Note)
	}
	sel := menu.Selection{MainDish: &e.Meal.MainDish, Snack: &e.Meal.Snack, Drink: &e.Meal.Drink}
	renderSelection(w, sel)
	fmt.Fprintf(w, "Analysis: %s\n", e.AnalysisStatus)
	if e.Analysis != nil {
		fmt.Fprintln(w)
		renderAnalysis(w, *e.Analysis)
	}
}

func renderEntryRow(w io.Writer, e journal.Entry) {
	names := []string{e.Meal.MainDish.NameTH, e.Meal.Snack.NameTH, e.Meal.Drink.NameTH}
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		colorize(colorFaint, e.CreatedAt.Local().Format("2006-01-02 15:04")),
		e.ID[:min(8, len(e.ID))],
		strings.Join(names, " + "),
		colorize(scoreColor(e.AvgScore), fmt.Sprintf("%.1f", e.AvgScore)))
}

func renderStats(w io.Writer, st journal.Stats) {
	period := "all time"
	if !st.Since.IsZero() {
		period = "since " + st.Since.Local().Format("2006-01-02")
	}
	fmt.Fprintf(w, "%s (%s)\n", colorize(colorBold, "Meal stats"), period)
	printRow := func(label, value string) {
		fmt.Fprintf(w, "  %-20s %s\n", label, value)
	}
	printRow("Meals", fmt.Sprintf("%d", st.Count))
	if st.Count == 0 {
		return
	}
	printRow("Avg calories", fmt.Sprintf("%.0f kcal", st.AvgKcal))
	printRow("Avg sugar", fmt.Sprintf("%.1f g", st.AvgSugarG))
	printRow("Avg score", colorize(scoreColor(st.AvgScore), fmt.Sprintf("%.1f", st.AvgScore)))
	printRow("Low-sugar meals", fmt.Sprintf("%d", st.LowSugarMeals))
	printRow("High-caffeine meals", fmt.Sprintf("%d", st.HighCaffeineMeals))
	printRow("Analyzed", fmt.Sprintf("%d", st.Analyzed))
}

// spinFollower draws the wheels named in want on a single terminal line
// as frames arrive.
type spinFollower struct {
	w       io.Writer
	want    []menu.Category
	current map[menu.Category]menu.MenuItem
	landed  map[menu.Category]bool
}

func newSpinFollower(w io.Writer, want []menu.Category) *spinFollower {
	return &spinFollower{
		w:       w,
		want:    want,
		current: make(map[menu.Category]menu.MenuItem),
		landed:  make(map[menu.Category]bool),
	}
}

// handle consumes one event and reports whether every wheel has landed.
func (f *spinFollower) handle(ev session.Event) bool {
	if ev.Type != session.EventFrame || ev.Frame == nil || !f.wants(ev.Frame.Category) {
		return f.done()
	}
	f.frame(*ev.Frame)
	return f.done()
}

func (f *spinFollower) frame(fr spin.Frame) {
	f.current[fr.Category] = fr.Item
	if fr.Final {
		f.landed[fr.Category] = true
	}

	parts := make([]string, 0, len(f.want))
	for _, cat := range f.want {
		it, ok := f.current[cat]
		name := "…"
		if ok {
			name = it.NameTH
		}
		c := colorFaint
		if f.landed[cat] {
			c = colorGreen
		}
		parts = append(parts, categoryIcon(cat)+" "+colorize(c, name))
	}
	eol := ""
	if !color.NoColor {
		eol = "\033[K"
	}
	fmt.Fprintf(f.w, "\r%s%s", strings.Join(parts, "  |  "), eol)
	if f.done() {
		fmt.Fprintln(f.w)
	}
}

func (f *spinFollower) wants(cat menu.Category) bool {
	for _, c := range f.want {
		if c == cat {
			return true
		}
	}
	return false
}

func (f *spinFollower) done() bool {
	for _, c := range f.want {
		if !f.landed[c] {
			return false
		}
	}
	return true
}
