//go:build !darwin

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// appDir returns the nutriwheel directory under an XDG base directory,
// using the conventional home-relative default when the variable is unset.
func appDir(env string, homeDefault ...string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, "nutriwheel")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "nutriwheel-data"
	}
	return filepath.Join(append(append([]string{home}, homeDefault...), "nutriwheel")...)
}

func defaultDataDir() string {
	return appDir("XDG_DATA_HOME", ".local", "share")
}

func configFilePath() string {
	return filepath.Join(appDir("XDG_CONFIG_HOME", ".config"), "config.yaml")
}

func secretStoreHint(account string) string {
	return fmt.Sprintf("%s (key %s.%s)", secretsFilePath(), secretService, account)
}

func newPlatformBackend() Backend {
	b := &yamlBackend{path: configFilePath(), values: map[string]any{}}
	if err := readYAMLFile(b.path, &b.values); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] ignoring config file: %v\n", err)
		b.values = map[string]any{}
	}
	return b
}

// yamlBackend keeps settings as a flat YAML mapping of dotted key to value.
// Every write rewrites the whole file.
type yamlBackend struct {
	path   string
	values map[string]any
}

func (b *yamlBackend) GetString(key string) (string, bool, error) {
	v, ok := b.values[key]
	switch {
	case !ok || v == nil:
		return "", false, nil
	case isString(v):
		return v.(string), true, nil
	default:
		return fmt.Sprint(v), true, nil
	}
}

func (b *yamlBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.values[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %q is not an integer", key, n)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: expected an integer, got %T", key, v)
	}
}

func (b *yamlBackend) SetString(key, val string) error { return b.put(key, val) }

func (b *yamlBackend) SetInt(key string, val int) error { return b.put(key, val) }

func (b *yamlBackend) Delete(key string) error {
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return writeYAMLFile(b.path, b.values)
}

func (b *yamlBackend) put(key string, val any) error {
	b.values[key] = val
	return writeYAMLFile(b.path, b.values)
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// readYAMLFile decodes path into v. A missing file leaves v untouched.
func readYAMLFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeYAMLFile replaces path with the encoding of v. The file is written
// next to its destination and renamed so readers never see a partial file.
func writeYAMLFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
