package profile

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	SetProfileKey(key, value string) error
	GetAllProfileKeys() (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Keys lists the stored profile fields in display order.
var Keys = []string{
	"age", "gender", "weight_kg", "height_cm", "goal",
	"has_diabetes", "has_hypertension", "sensitive_to_caffeine",
}

// Manager provides cached access to the profile persisted as flat keys.
// Keys that were never set fall back to Default.
type Manager struct {
	store ProfileStore
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{store: store, clock: clock, ttl: ttl}
}

// GetProfile returns the stored profile, or Default on an empty store.
func (m *Manager) GetProfile() (Profile, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := *m.cached
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return *m.cached, nil
	}

	keys, err := m.store.GetAllProfileKeys()
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile keys: %w", err)
	}

	p := buildProfile(keys)
	m.cached = &p
	m.cachedAt = m.clock.Now()
	return p, nil
}

// SetField parses, validates and persists one profile key, then invalidates
// the cache.
func (m *Manager) SetField(key, value string) error {
	current, err := m.GetProfile()
	if err != nil {
		return err
	}
	if err := applyField(&current, key, value); err != nil {
		return err
	}
	if err := current.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetProfileKey(key, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("setting profile key %q: %w", key, err)
	}
	m.cached = nil
	return nil
}

// Update validates and persists every field of p.
func (m *Manager) Update(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range flatten(p) {
		if err := m.store.SetProfileKey(k, v); err != nil {
			m.cached = nil
			return fmt.Errorf("setting profile key %q: %w", k, err)
		}
	}
	m.cached = nil
	return nil
}

// GetSummary returns a one-line description of the profile.
func (m *Manager) GetSummary() (string, error) {
	p, err := m.GetProfile()
	if err != nil {
		return "", fmt.Errorf("getting profile for summary: %w", err)
	}
	return Summarize(p), nil
}

// Summarize renders p as a short English sentence.
func Summarize(p Profile) string {
	parts := []string{fmt.Sprintf("%d y/o %s, %.0f kg, %.0f cm (BMI %.1f), goal %s.",
		p.Age, p.Gender, p.WeightKg, p.HeightCm, p.BMI(), strings.ReplaceAll(string(p.Goal), "_", " "))}

	var conds []string
	if p.HasDiabetes {
		conds = append(conds, "diabetes")
	}
	if p.HasHypertension {
		conds = append(conds, "hypertension")
	}
	if p.SensitiveToCaffeine {
		conds = append(conds, "caffeine sensitive")
	}
	if len(conds) > 0 {
		parts = append(parts, "Notes: "+strings.Join(conds, ", ")+".")
	}
	return strings.Join(parts, " ")
}

func flatten(p Profile) map[string]string {
	return map[string]string{
		"age":                   strconv.Itoa(p.Age),
		"gender":                string(p.Gender),
		"weight_kg":             strconv.FormatFloat(p.WeightKg, 'f', -1, 64),
		"height_cm":             strconv.FormatFloat(p.HeightCm, 'f', -1, 64),
		"goal":                  string(p.Goal),
		"has_diabetes":          strconv.FormatBool(p.HasDiabetes),
		"has_hypertension":      strconv.FormatBool(p.HasHypertension),
		"sensitive_to_caffeine": strconv.FormatBool(p.SensitiveToCaffeine),
	}
}

// buildProfile overlays stored keys on Default. Malformed values are logged
// and skipped.
func buildProfile(keys map[string]string) Profile {
	p := Default()
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := applyField(&p, k, keys[k]); err != nil {
			slog.Warn("malformed profile key, skipping", "key", k, "error", err)
		}
	}
	return p
}

func applyField(p *Profile, key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "age":
		p.Age, err = strconv.Atoi(value)
	case "gender":
		p.Gender = Gender(strings.ToLower(value))
	case "weight_kg":
		p.WeightKg, err = strconv.ParseFloat(value, 64)
	case "height_cm":
		p.HeightCm, err = strconv.ParseFloat(value, 64)
	case "goal":
		p.Goal = Goal(strings.ToLower(value))
	case "has_diabetes":
		p.HasDiabetes, err = strconv.ParseBool(value)
	case "has_hypertension":
		p.HasHypertension, err = strconv.ParseBool(value)
	case "sensitive_to_caffeine":
		p.SensitiveToCaffeine, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("%w: unknown key %q (valid: %s)", ErrInvalid, key, strings.Join(Keys, ", "))
	}
	if err != nil {
		return fmt.Errorf("%w: value %q for %s: %v", ErrInvalid, value, key, err)
	}
	return nil
}
