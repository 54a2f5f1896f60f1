package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
}

func (m mockKeychain) Get(service, account string) (string, error) {
	if v, ok := m.values[service+"/"+account]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func (m mockKeychain) Set(service, account, value string) error {
	m.values[service+"/"+account] = value
	return nil
}

// memBackend is an in-memory Backend.
type memBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strs[key]
	return v, ok, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *memBackend) SetString(key, val string) error { b.strs[key] = val; return nil }
func (b *memBackend) SetInt(key string, val int) error { b.ints[key] = val; return nil }
func (b *memBackend) Delete(key string) error {
	delete(b.strs, key)
	delete(b.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied with an empty backend.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend(), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4310 {
		t.Errorf("Server.Port = %d, want 4310", cfg.Server.Port)
	}
	if cfg.Advisor.Provider != "gemini" {
		t.Errorf("Advisor.Provider = %q, want gemini", cfg.Advisor.Provider)
	}
	if cfg.Advisor.Timeout != 60*time.Second {
		t.Errorf("Advisor.Timeout = %v, want 60s", cfg.Advisor.Timeout)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Audio.Mode != "auto" {
		t.Errorf("Audio.Mode = %q, want auto", cfg.Audio.Mode)
	}
	if cfg.Spin.Steps != 25 || cfg.Spin.BaseDelayMS != 50 {
		t.Errorf("Spin = %+v", cfg.Spin)
	}
	if cfg.Advisor.GeminiAPIKey != "" {
		t.Error("missing API key should not be filled in")
	}
}

// TestBackendValues verifies values from the platform backend are applied.
func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.ints["spin.steps"] = 10
	b.strs["advisor.provider"] = "ollama"
	b.strs["advisor.timeout"] = "90s"
	b.strs["storage.data_dir"] = "/tmp/nutriwheel-test"
	// Secrets are never read from the plain backend.
	b.strs["gemini.api_key"] = "leaked"

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 || cfg.Spin.Steps != 10 {
		t.Errorf("port=%d steps=%d", cfg.Server.Port, cfg.Spin.Steps)
	}
	if cfg.Advisor.Provider != "ollama" || cfg.Advisor.Timeout != 90*time.Second {
		t.Errorf("advisor = %+v", cfg.Advisor)
	}
	if cfg.Storage.DataDir != "/tmp/nutriwheel-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Advisor.GeminiAPIKey != "" {
		t.Error("secret read from the config backend")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.ints["server.port"] = 5000

	t.Setenv("NUTRIWHEEL_SERVER_PORT", "6000")
	t.Setenv("NUTRIWHEEL_GEMINI_API_KEY", "env-key")
	t.Setenv("NUTRIWHEEL_ADVISOR_TIMEOUT", "not-a-duration")

	cfg, err := loadWith(b, mockKeychain{values: map[string]string{"nutriwheel/gemini_api_key": "kc-key"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Advisor.GeminiAPIKey != "env-key" {
		t.Errorf("GeminiAPIKey = %q, want env-key", cfg.Advisor.GeminiAPIKey)
	}
	if cfg.Advisor.Timeout != 60*time.Second {
		t.Errorf("bad duration should keep default, got %v", cfg.Advisor.Timeout)
	}
}

// TestKeychainFallback verifies the secret store is consulted for empty secrets.
func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	kc := mockKeychain{values: map[string]string{"nutriwheel/openrouter_api_key": "keychain-secret"}}
	cfg, err := loadWith(newMemBackend(), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Advisor.OpenRouterAPIKey != "keychain-secret" {
		t.Errorf("OpenRouterAPIKey = %q, want %q", cfg.Advisor.OpenRouterAPIKey, "keychain-secret")
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()
	kc := mockKeychain{values: map[string]string{}}

	if err := setKeyWith(b, kc, "server.port", "4400"); err != nil || b.ints["server.port"] != 4400 {
		t.Errorf("int key: err=%v stored=%d", err, b.ints["server.port"])
	}
	if err := setKeyWith(b, kc, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, kc, "advisor.timeout", "2m"); err != nil || b.strs["advisor.timeout"] != "2m" {
		t.Errorf("duration key: err=%v", err)
	}
	if err := setKeyWith(b, kc, "advisor.timeout", "soon"); err == nil {
		t.Error("expected error for bad duration")
	}
	if err := setKeyWith(b, kc, "gemini.api_key", "s3cret"); err != nil {
		t.Fatalf("secret key: %v", err)
	}
	if kc.values["nutriwheel/gemini_api_key"] != "s3cret" {
		t.Error("secret not written to the secret store")
	}
	if _, ok := b.strs["gemini.api_key"]; ok {
		t.Error("secret written to the plain backend")
	}
	if err := setKeyWith(b, kc, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Advisor.GeminiAPIKey = "s3cret"

	seen := map[string]string{}
	for _, k := range ShowAll(cfg) {
		seen[k.Key] = k.Value
		if strings.Contains(k.Value, "s3cret") {
			t.Errorf("%s leaks the secret", k.Key)
		}
	}
	if seen["gemini.api_key"] != "(set)" || seen["openrouter.api_key"] != "(unset)" {
		t.Errorf("secret display = %q / %q", seen["gemini.api_key"], seen["openrouter.api_key"])
	}
	if seen["server.port"] != "4310" {
		t.Errorf("server.port = %q", seen["server.port"])
	}
	if len(ValidKeys()) != len(specs) {
		t.Error("ValidKeys does not list every key")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "NUTRIWHEEL_AUDIO_MODE=bell\nNUTRIWHEEL_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NUTRIWHEEL_LOG_LEVEL", "warn")
	t.Setenv("NUTRIWHEEL_AUDIO_MODE", "")
	os.Unsetenv("NUTRIWHEEL_AUDIO_MODE")

	LoadDotEnv(filepath.Join(dir, "missing.env"), path)

	if got := os.Getenv("NUTRIWHEEL_AUDIO_MODE"); got != "bell" {
		t.Errorf("NUTRIWHEEL_AUDIO_MODE = %q, want bell", got)
	}
	if got := os.Getenv("NUTRIWHEEL_LOG_LEVEL"); got != "warn" {
		t.Errorf("existing variable overridden: %q", got)
	}
}

func TestSecretHint(t *testing.T) {
	if h := SecretHint("gemini.api_key"); !strings.Contains(h, "NUTRIWHEEL_GEMINI_API_KEY") {
		t.Errorf("hint = %q", h)
	}
	if SecretHint("server.port") != "" {
		t.Error("non-secret key has a hint")
	}
}
