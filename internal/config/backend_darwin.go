//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings live in UserDefaults under this domain, so they can also be
// inspected with `defaults read com.nutriwheel.app`.
const defaultsDomain = "com.nutriwheel.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nutriwheel-data"
	}
	return filepath.Join(home, "Library", "Application Support", "nutriwheel")
}

func secretStoreHint(account string) string {
	return fmt.Sprintf("the login keychain (service %s, account %s)", secretService, account)
}

func newPlatformBackend() Backend {
	return userDefaults(defaultsDomain)
}

type userDefaults string

// run invokes the defaults tool against the domain. Exit status 1 from
// `defaults read` means the key is absent, reported as errKeyAbsent.
func (d userDefaults) run(verb, key string, args ...string) (string, error) {
	argv := append([]string{verb, string(d), key}, args...)
	out, err := exec.Command("defaults", argv...).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if verb == "read" && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", errKeyAbsent
		}
		return "", fmt.Errorf("defaults %s %s: %w (%s)", verb, key, err, text)
	}
	return text, nil
}

var errKeyAbsent = errors.New("key not set")

func (d userDefaults) GetString(key string) (string, bool, error) {
	v, err := d.run("read", key)
	if errors.Is(err, errKeyAbsent) {
		return "", false, nil
	}
	return v, err == nil, err
}

func (d userDefaults) GetInt(key string) (int, bool, error) {
	v, ok, err := d.GetString(key)
	if !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, true, nil
}

func (d userDefaults) SetString(key, val string) error {
	_, err := d.run("write", key, "-string", val)
	return err
}

func (d userDefaults) SetInt(key string, val int) error {
	_, err := d.run("write", key, "-int", strconv.Itoa(val))
	return err
}

func (d userDefaults) Delete(key string) error {
	_, err := d.run("delete", key)
	return err
}
