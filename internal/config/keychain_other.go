//go:build !darwin

package config

import (
	"fmt"
	"path/filepath"
)

// Without a system keychain, secrets live in a JSON file next to the data
// directory, keyed by service then account.
type secretsFile map[string]map[string]string

func secretsFilePath() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "pursuit", "secrets.json")
}

func keychainGet(service, account string) ([]byte, error) {
	var secrets secretsFile
	if err := readJSONFile(secretsFilePath(), &secrets); err != nil {
		return nil, err
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret for %s/%s in %s", service, account, secretsFilePath())
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	path := secretsFilePath()
	secrets := secretsFile{}
	if err := readJSONFile(path, &secrets); err != nil {
		return err
	}
	if secrets[service] == nil {
		secrets[service] = map[string]string{}
	}
	secrets[service][account] = value
	return writeJSONFile(path, secrets)
}
