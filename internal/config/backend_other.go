//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// xdgPath joins elem under the directory named by envVar, or under
// $HOME/fallback when the variable is unset.
func xdgPath(envVar, fallback string, elem ...string) string {
	dir := os.Getenv(envVar)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, fallback)
	}
	return filepath.Join(append([]string{dir}, elem...)...)
}

func defaultDataDir() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "pursuit")
}

func configFilePath() string {
	return xdgPath("XDG_CONFIG_HOME", ".config", "pursuit", "config.json")
}

func apiKeyHint() string {
	return " or add it to " + secretsFilePath() + ` as {"pursuit":{"exa_api_key":"..."}}`
}

// fileBackend keeps user-set keys as a flat JSON object.
type fileBackend struct {
	path   string
	values map[string]any
}

func newPlatformBackend() Backend {
	b := &fileBackend{path: configFilePath(), values: map[string]any{}}
	if err := readJSONFile(b.path, &b.values); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] %v. Using default values.\n", err)
	}
	return b
}

func (b *fileBackend) Lookup(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	switch v.(type) {
	case string, float64, bool:
		return formatValue(v), true, nil
	}
	return "", true, fmt.Errorf("%s holds a %T, want a string, number or bool", key, v)
}

func (b *fileBackend) Store(key string, v any) error {
	b.values[key] = v
	return writeJSONFile(b.path, b.values)
}

func (b *fileBackend) Unset(key string) error {
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return writeJSONFile(b.path, b.values)
}

// readJSONFile decodes path into v. A missing file leaves v untouched.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	return nil
}

// writeJSONFile replaces path with v, readable by the owner only.
func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
