//go:build !darwin

package config

import (
	"fmt"
	"path/filepath"
)

// Without a system keychain, secrets live in a private YAML file in the
// data directory, grouped by service:
//
//	nutriwheel:
//	  gemini_api_key: ...
func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.yaml")
}

func loadSecrets() (map[string]map[string]string, error) {
	secrets := map[string]map[string]string{}
	if err := readYAMLFile(secretsFilePath(), &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func secretGet(service, account string) (string, error) {
	secrets, err := loadSecrets()
	if err != nil {
		return "", err
	}
	v, ok := secrets[service][account]
	if !ok {
		return "", fmt.Errorf("no %s secret for %s", service, account)
	}
	return v, nil
}

func secretPut(service, account, value string) error {
	secrets, err := loadSecrets()
	if err != nil {
		return err
	}
	if secrets[service] == nil {
		secrets[service] = map[string]string{}
	}
	secrets[service][account] = value
	return writeYAMLFile(secretsFilePath(), secrets)
}
