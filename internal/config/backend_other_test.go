//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestYAMLBackend(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if _, ok, err := b.GetInt("server.port"); ok || err != nil {
		t.Fatalf("empty backend: ok=%v err=%v", ok, err)
	}
	if err := b.SetInt("server.port", 4400); err != nil {
		t.Fatal(err)
	}
	if err := b.SetString("advisor.provider", "ollama"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(configFilePath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "server.port: 4400") {
		t.Errorf("config file:\n%s", data)
	}

	// A fresh backend sees the persisted values.
	b = newPlatformBackend()
	if port, ok, err := b.GetInt("server.port"); !ok || err != nil || port != 4400 {
		t.Errorf("server.port = %d ok=%v err=%v", port, ok, err)
	}
	if v, _, _ := b.GetString("advisor.provider"); v != "ollama" {
		t.Errorf("advisor.provider = %q", v)
	}
	if err := b.Delete("advisor.provider"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.GetString("advisor.provider"); ok {
		t.Error("deleted key still present")
	}
}

func TestYAMLBackend_BadValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "nutriwheel", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("spin.steps: many\nserver.port: \"4500\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	b := newPlatformBackend()
	if _, _, err := b.GetInt("spin.steps"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if port, _, err := b.GetInt("server.port"); err != nil || port != 4500 {
		t.Errorf("quoted port = %d, %v", port, err)
	}
}

func TestSecretsFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := secretGet(secretService, "gemini_api_key"); err == nil {
		t.Error("expected error for missing secret")
	}
	if err := secretPut(secretService, "gemini_api_key", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if err := secretPut(secretService, "openrouter_api_key", "other"); err != nil {
		t.Fatal(err)
	}
	if v, err := secretGet(secretService, "gemini_api_key"); err != nil || v != "s3cret" {
		t.Errorf("gemini_api_key = %q, %v", v, err)
	}

	info, err := os.Stat(secretsFilePath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("secrets file mode = %v", info.Mode().Perm())
	}
	if !strings.Contains(SecretHint("gemini.api_key"), "secrets.yaml") {
		t.Errorf("hint = %q", SecretHint("gemini.api_key"))
	}
}
