package profile

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// --- Mock store ---

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error

	getAllCalls int
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) SetProfileKey(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *mockStore) GetAllProfileKeys() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllCalls++
	if m.err != nil {
		return nil, m.err
	}
	cp := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	return cp, nil
}

func (m *mockStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAllCalls
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Tests ---

func TestGetProfile_EmptyStoreReturnsDefault(t *testing.T) {
	mgr := NewManager(newMockStore())

	p, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != Default() {
		t.Errorf("got %+v, want default %+v", p, Default())
	}
	if p.Age != 28 || p.Gender != GenderFemale || p.WeightKg != 60 || p.HeightCm != 165 {
		t.Errorf("default body fields wrong: %+v", p)
	}
	if p.Goal != GoalMaintain || p.HasDiabetes || p.HasHypertension || !p.SensitiveToCaffeine {
		t.Errorf("default health fields wrong: %+v", p)
	}
}

func TestSetAndGetField(t *testing.T) {
	mgr := NewManager(newMockStore())

	if err := mgr.SetField("weight_kg", "72.5"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if err := mgr.SetField("has_diabetes", "true"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if err := mgr.SetField("goal", "Weight_Loss"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}

	p, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if p.WeightKg != 72.5 || !p.HasDiabetes || p.Goal != GoalWeightLoss {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.Age != 28 {
		t.Errorf("unset key should keep default, age = %d", p.Age)
	}
}

func TestSetField_Rejects(t *testing.T) {
	tests := []struct{ key, value string }{
		{"age", "-3"},
		{"age", "old"},
		{"gender", "robot"},
		{"goal", "bulk"},
		{"has_hypertension", "maybe"},
		{"favourite_color", "blue"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			store := newMockStore()
			mgr := NewManager(store)
			if err := mgr.SetField(tt.key, tt.value); err == nil {
				t.Fatal("expected error")
			}
			if len(store.data) != 0 {
				t.Errorf("rejected value was persisted: %v", store.data)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	want := Profile{Age: 40, Gender: GenderMale, WeightKg: 80, HeightCm: 180, Goal: GoalMuscleGain, HasHypertension: true}
	if err := mgr.Update(want); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	bad := want
	bad.Gender = ""
	if err := mgr.Update(bad); err == nil {
		t.Error("Update accepted empty gender")
	}
}

func TestGetProfile_StoreError(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("disk gone")
	mgr := NewManager(store)
	if _, err := mgr.GetProfile(); err == nil {
		t.Error("expected error from failing store")
	}
}

func TestMalformedKeySkipped(t *testing.T) {
	store := newMockStore()
	store.data["age"] = "twenty"
	store.data["height_cm"] = "170"
	mgr := NewManager(store)

	p, err := mgr.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Age != 28 {
		t.Errorf("malformed age should fall back to default, got %d", p.Age)
	}
	if p.HeightCm != 170 {
		t.Errorf("HeightCm = %v, want 170", p.HeightCm)
	}
}

func TestGetSummary(t *testing.T) {
	mgr := NewManager(newMockStore())
	summary, err := mgr.GetSummary()
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	for _, want := range []string{"28 y/o female", "BMI 22.0", "goal maintain", "caffeine sensitive"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
}

func TestBMI(t *testing.T) {
	if got := (Profile{WeightKg: 60, HeightCm: 165}).BMI(); got != 22.0 {
		t.Errorf("BMI = %v, want 22.0", got)
	}
	if got := (Profile{WeightKg: 60}).BMI(); got != 0 {
		t.Errorf("BMI without height = %v, want 0", got)
	}
}

func TestCacheTTL(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	mgr := NewManagerWithClock(store, clock, 60*time.Second)

	mgr.GetProfile()
	mgr.GetProfile()

	if calls := store.calls(); calls != 1 {
		t.Errorf("expected 1 store call (cache hit on second), got %d", calls)
	}
}

func TestCacheInvalidation(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	ttl := 60 * time.Second
	mgr := NewManagerWithClock(store, clock, ttl)

	mgr.GetProfile()
	clock.Advance(ttl + time.Second)
	mgr.GetProfile()

	if calls := store.calls(); calls != 2 {
		t.Errorf("expected 2 store calls (cache expired), got %d", calls)
	}

	if err := mgr.SetField("age", "30"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	p, _ := mgr.GetProfile()
	if p.Age != 30 {
		t.Errorf("cache not invalidated by SetField, age = %d", p.Age)
	}
}
