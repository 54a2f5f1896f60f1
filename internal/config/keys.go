package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	// account names the secret in the platform secret store.
	account string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "NUTRIWHEEL_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "NUTRIWHEEL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.data_dir", typ: kString, env: "NUTRIWHEEL_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "advisor.provider", typ: kString, env: "NUTRIWHEEL_ADVISOR_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Advisor.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.Provider },
	},
	{
		key: "advisor.model", typ: kString, env: "NUTRIWHEEL_ADVISOR_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Advisor.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.Model },
	},
	{
		key: "advisor.timeout", typ: kDuration, env: "NUTRIWHEEL_ADVISOR_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Advisor.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Advisor.Timeout },
	},
	{
		key: "ollama.base_url", typ: kString, env: "NUTRIWHEEL_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "audio.mode", typ: kString, env: "NUTRIWHEEL_AUDIO_MODE",
		apply:   func(cfg *Config, v any) { cfg.Audio.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Audio.Mode },
	},
	{
		key: "spin.steps", typ: kInt, env: "NUTRIWHEEL_SPIN_STEPS",
		apply:   func(cfg *Config, v any) { cfg.Spin.Steps = v.(int) },
		extract: func(cfg Config) any { return cfg.Spin.Steps },
	},
	{
		key: "spin.base_delay_ms", typ: kInt, env: "NUTRIWHEEL_SPIN_BASE_DELAY_MS",
		apply:   func(cfg *Config, v any) { cfg.Spin.BaseDelayMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Spin.BaseDelayMS },
	},
	{
		key: "server.token", typ: kString, env: "NUTRIWHEEL_SERVER_TOKEN",
		secret: true, account: "server_token",
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "gemini.api_key", typ: kString, env: "NUTRIWHEEL_GEMINI_API_KEY",
		secret: true, account: "gemini_api_key",
		apply:   func(cfg *Config, v any) { cfg.Advisor.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.GeminiAPIKey },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "NUTRIWHEEL_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.Advisor.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.OpenRouterAPIKey },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
