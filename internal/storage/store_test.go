package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) || len(v1) != 2 {
		t.Errorf("migrations: first=%v second=%v, want two versions both times", v1, v2)
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_jobs_status_run_after", "idx_meals_created"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count); err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestProfileKeyRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetProfileKey("age"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProfileKey on empty store = %v, want ErrNotFound", err)
	}
	if err := s.SetProfileKey("age", "30"); err != nil {
		t.Fatalf("SetProfileKey: %v", err)
	}
	if err := s.SetProfileKey("age", "31"); err != nil {
		t.Fatalf("SetProfileKey overwrite: %v", err)
	}
	if err := s.SetProfileKey("goal", "maintain"); err != nil {
		t.Fatalf("SetProfileKey: %v", err)
	}

	v, err := s.GetProfileKey("age")
	if err != nil || v != "31" {
		t.Errorf("GetProfileKey(age) = %q, %v; want 31", v, err)
	}
	all, err := s.GetAllProfileKeys()
	if err != nil {
		t.Fatalf("GetAllProfileKeys: %v", err)
	}
	if len(all) != 2 || all["goal"] != "maintain" {
		t.Errorf("GetAllProfileKeys = %v", all)
	}
}

func testMeal(id string, created time.Time, sugar float64, caffeine string) Meal {
	return Meal{
		ID:             id,
		CreatedAt:      created,
		CatalogVersion: "1.0-default",
		MainDishJSON:   `{"id":"m2"}`,
		SnackJSON:      `{"id":"s1"}`,
		DrinkJSON:      `{"id":"d1"}`,
		TotalKcal:      430,
		TotalSugarG:    sugar,
		AvgScore:       9,
		DrinkCaffeine:  caffeine,
	}
}

func TestSaveAndGetMeal(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	want := testMeal("meal-1", now, 20, "none")
	want.Note = "lunch"
	if err := s.SaveMeal(want); err != nil {
		t.Fatalf("SaveMeal: %v", err)
	}

	got, err := s.GetMeal("meal-1")
	if err != nil {
		t.Fatalf("GetMeal: %v", err)
	}
	want.AnalysisStatus = AnalysisNone
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt, want.CreatedAt = time.Time{}, time.Time{}
	if got != want {
		t.Errorf("GetMeal = %+v\nwant %+v", got, want)
	}

	if _, err := s.GetMeal("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMeal(missing) = %v, want ErrNotFound", err)
	}
}

func TestListMeals_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := s.SaveMeal(testMeal(fmt.Sprintf("meal-%d", i), base.Add(time.Duration(i)*time.Minute), 5, "none")); err != nil {
			t.Fatalf("SaveMeal: %v", err)
		}
	}

	got, err := s.ListMeals(3)
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"meal-4", "meal-3", "meal-2"} {
		if got[i].ID != want {
			t.Errorf("got[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestDeleteMeal(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveMeal(testMeal("meal-del", time.Now(), 5, "none")); err != nil {
		t.Fatalf("SaveMeal: %v", err)
	}
	if err := s.DeleteMeal("meal-del"); err != nil {
		t.Fatalf("DeleteMeal: %v", err)
	}
	if err := s.DeleteMeal("meal-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteMeal = %v, want ErrNotFound", err)
	}
}

func TestSetMealAnalysis(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveMeal(testMeal("meal-a", time.Now(), 5, "none")); err != nil {
		t.Fatalf("SaveMeal: %v", err)
	}
	if err := s.SetMealAnalysis("meal-a", `{"summary_th":"ok"}`, AnalysisDone); err != nil {
		t.Fatalf("SetMealAnalysis: %v", err)
	}
	m, err := s.GetMeal("meal-a")
	if err != nil {
		t.Fatalf("GetMeal: %v", err)
	}
	if m.AnalysisStatus != AnalysisDone || m.AnalysisJSON != `{"summary_th":"ok"}` {
		t.Errorf("analysis = %q/%q", m.AnalysisStatus, m.AnalysisJSON)
	}
	if err := s.SetMealAnalysis("missing", "", AnalysisFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetMealAnalysis(missing) = %v, want ErrNotFound", err)
	}
}

func TestGetMealStats(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.GetMealStats(time.Time{})
	if err != nil {
		t.Fatalf("GetMealStats on empty: %v", err)
	}
	if empty.Count != 0 || empty.AvgKcal != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	now := time.Now().UTC()
	old := testMeal("old", now.Add(-48*time.Hour), 50, "high")
	m1 := testMeal("m1", now, 8, "high")
	m2 := testMeal("m2", now, 30, "medium")
	m2.AvgScore = 5
	m2.TotalKcal = 830
	for _, m := range []Meal{old, m1, m2} {
		if err := s.SaveMeal(m); err != nil {
			t.Fatalf("SaveMeal: %v", err)
		}
	}
	if err := s.SetMealAnalysis("m1", "{}", AnalysisDone); err != nil {
		t.Fatalf("SetMealAnalysis: %v", err)
	}

	st, err := s.GetMealStats(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetMealStats: %v", err)
	}
	if st.Count != 2 {
		t.Errorf("Count = %d, want 2", st.Count)
	}
	if st.AvgKcal != 630 {
		t.Errorf("AvgKcal = %v, want 630", st.AvgKcal)
	}
	if st.AvgScore != 7 {
		t.Errorf("AvgScore = %v, want 7", st.AvgScore)
	}
	if st.LowSugarMeals != 1 || st.HighCaffeineMeals != 1 || st.Analyzed != 1 {
		t.Errorf("stats = %+v", st)
	}

	all, err := s.GetMealStats(time.Time{})
	if err != nil {
		t.Fatalf("GetMealStats(all): %v", err)
	}
	if all.Count != 3 || all.HighCaffeineMeals != 2 {
		t.Errorf("all stats = %+v", all)
	}
}

func TestLoadMigrations(t *testing.T) {
	ms, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(ms) != 2 || ms[0].version != 1 || ms[1].version != 2 {
		t.Fatalf("migrations = %+v", ms)
	}
	if ms[1].name != "002_meals.sql" {
		t.Errorf("name = %q", ms[1].name)
	}
}
