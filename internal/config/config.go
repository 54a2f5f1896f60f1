package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	Advisor AdvisorConfig
	Ollama  OllamaConfig
	Audio   AudioConfig
	Spin    SpinConfig
}

type ServerConfig struct {
	Port int
	// Token guards the HTTP API. Empty disables authentication.
	Token string
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	DataDir string
}

type AdvisorConfig struct {
	Provider         string
	Model            string
	Timeout          time.Duration
	GeminiAPIKey     string
	OpenRouterAPIKey string
}

type OllamaConfig struct {
	BaseURL string
}

type AudioConfig struct {
	Mode string
}

type SpinConfig struct {
	Steps       int
	BaseDelayMS int
}

func defaults() Config {
	return Config{
		Server:  ServerConfig{Port: 4310},
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Advisor: AdvisorConfig{
			Provider: "gemini",
			Timeout:  60 * time.Second,
		},
		Ollama: OllamaConfig{BaseURL: "http://localhost:11434"},
		Audio:  AudioConfig{Mode: "auto"},
		Spin:   SpinConfig{Steps: 25, BaseDelayMS: 50},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// Before anything else, .env files in the working directory and in the
// default data directory are loaded into the process environment; they
// never override variables that are already set.
//
// On macOS the backend is UserDefaults (domain: com.nutriwheel.app) and
// secrets fall back to macOS Keychain. Elsewhere the backend is a YAML file
// at $XDG_CONFIG_HOME/nutriwheel/config.yaml and secrets fall back to
// $XDG_DATA_HOME/nutriwheel/secrets.yaml.
//
// Environment variables (NUTRIWHEEL_*) override backend values on all
// platforms. Missing API keys are not an error; the advisor is disabled.
func Load() (Config, error) {
	LoadDotEnv(".env", filepath.Join(defaultDataDir(), ".env"))
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

const secretService = "nutriwheel"

func loadWith(b Backend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg).(string) != "" {
			continue
		}
		if v, err := kc.Get(secretService, s.account); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	return secretGet(service, account)
}
