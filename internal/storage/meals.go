package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const mealColumns = `id, created_at, catalog_version, main_dish_json, snack_json, drink_json,
	total_kcal, total_sugar_g, avg_score, drink_caffeine, analysis_json, analysis_status, note`

// LowSugarThresholdG is the total-sugar ceiling for a low-sugar meal.
const LowSugarThresholdG = 10

func (s *Store) SaveMeal(m Meal) error {
	status := m.AnalysisStatus
	if status == "" {
		status = AnalysisNone
	}
	caffeine := m.DrinkCaffeine
	if caffeine == "" {
		caffeine = "none"
	}
	_, err := s.db.Exec(`INSERT INTO meals (`+mealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CreatedAt.UTC().Format(time.RFC3339), m.CatalogVersion,
		m.MainDishJSON, m.SnackJSON, m.DrinkJSON,
		m.TotalKcal, m.TotalSugarG, m.AvgScore, caffeine,
		m.AnalysisJSON, status, m.Note,
	)
	return err
}

func (s *Store) GetMeal(id string) (Meal, error) {
	m, err := scanMeal(s.db.QueryRow(`SELECT `+mealColumns+` FROM meals WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Meal{}, ErrNotFound
	}
	return m, err
}

// ListMeals returns the newest meals first.
func (s *Store) ListMeals(limit int) ([]Meal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+mealColumns+` FROM meals
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMeal(id string) error {
	res, err := s.db.Exec(`DELETE FROM meals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// SetMealAnalysis stores the critique JSON (possibly empty) and its status.
func (s *Store) SetMealAnalysis(id, analysisJSON, status string) error {
	res, err := s.db.Exec(`UPDATE meals SET analysis_json = ?, analysis_status = ? WHERE id = ?`,
		analysisJSON, status, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// GetMealStats aggregates meals created at or after since. A zero since
// covers every meal.
func (s *Store) GetMealStats(since time.Time) (MealStats, error) {
	var st MealStats
	var avgKcal, avgSugar, avgScore sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       AVG(total_kcal),
		       AVG(total_sugar_g),
		       AVG(avg_score),
		       COALESCE(SUM(CASE WHEN total_sugar_g <= ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN drink_caffeine = 'high' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN analysis_status = 'done' THEN 1 ELSE 0 END), 0)
		FROM meals WHERE created_at >= ?`,
		LowSugarThresholdG, since.UTC().Format(time.RFC3339),
	).Scan(&st.Count, &avgKcal, &avgSugar, &avgScore, &st.LowSugarMeals, &st.HighCaffeineMeals, &st.Analyzed)
	if err != nil {
		return MealStats{}, fmt.Errorf("aggregating meals: %w", err)
	}
	st.AvgKcal = avgKcal.Float64
	st.AvgSugarG = avgSugar.Float64
	st.AvgScore = avgScore.Float64
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(r rowScanner) (Meal, error) {
	var m Meal
	var createdAt string
	if err := r.Scan(&m.ID, &createdAt, &m.CatalogVersion, &m.MainDishJSON, &m.SnackJSON, &m.DrinkJSON,
		&m.TotalKcal, &m.TotalSugarG, &m.AvgScore, &m.DrinkCaffeine, &m.AnalysisJSON, &m.AnalysisStatus, &m.Note); err != nil {
		return Meal{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Meal{}, fmt.Errorf("parsing created_at: %w", err)
	}
	m.CreatedAt = t
	return m, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
