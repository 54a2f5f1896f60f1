//go:build darwin

package config

import (
	"fmt"
	"os/exec"
	"strings"
)

func secretGet(service, account string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("keychain lookup %s/%s: %w", service, account, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// secretPut adds or updates (-U) the keychain item.
func secretPut(service, account, value string) error {
	if err := exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).Run(); err != nil {
		return fmt.Errorf("keychain update %s/%s: %w", service, account, err)
	}
	return nil
}
