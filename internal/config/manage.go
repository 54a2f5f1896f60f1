package config

import (
	"fmt"
	"strconv"
	"time"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string `json:"key" yaml:"key"`
	EnvVar string `json:"env" yaml:"env"`
	Value  string `json:"value" yaml:"value"`
	Secret bool   `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// ShowAll returns every config key with its current value. Secret values
// are reported only as set or unset.
func ShowAll(cfg Config) []KeyInfo {
	result := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		v := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret {
			if v == "" {
				v = "(unset)"
			} else {
				v = "(set)"
			}
		}
		result = append(result, KeyInfo{Key: s.key, EnvVar: s.env, Value: v, Secret: s.secret})
	}
	return result
}

// secretWriter abstracts the platform secret store for testing.
type secretWriter interface {
	Set(service, account, value string) error
}

type keychainWriter struct{}

func (keychainWriter) Set(service, account, value string) error {
	return secretPut(service, account, value)
}

// SetKey writes a config key to the platform backend. Secret keys go to the
// platform secret store instead.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), keychainWriter{}, key, value)
}

func setKeyWith(b Backend, sw secretWriter, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		if err := sw.Set(secretService, s.account, value); err != nil {
			return fmt.Errorf("storing secret %s: %w", key, err)
		}
		return nil
	}
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	case kDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
	}
	return b.SetString(key, value)
}

// ValidKeys returns the list of config key names, secrets included.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}

// SecretHint tells the user where a secret key can be provided.
func SecretHint(key string) string {
	s, ok := lookupSpec(key)
	if !ok || !s.secret {
		return ""
	}
	return fmt.Sprintf("set %s, run `nutriwheel config set %s <value>`, or add it to %s", s.env, s.key, secretStoreHint(s.account))
}
