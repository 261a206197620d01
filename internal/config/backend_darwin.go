//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultsDomain = "com.pursuit.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pursuit-data"
	}
	return filepath.Join(home, "Library", "Application Support", "pursuit")
}

func apiKeyHint() string {
	return " or the macOS Keychain (service pursuit, account exa_api_key)"
}

// defaultsBackend stores keys in the user defaults domain through the
// defaults command.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() Backend {
	return defaultsBackend{domain: defaultsDomain}
}

func (b defaultsBackend) Lookup(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		// Exit status 1 means the key (or the domain) does not exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s: %w: %s", key, err, s)
	}
	return s, true, nil
}

func (b defaultsBackend) Store(key string, v any) error {
	flag := "-string"
	switch v.(type) {
	case int:
		flag = "-int"
	case float64:
		flag = "-float"
	case bool:
		flag = "-bool"
	}
	return exec.Command("defaults", "write", b.domain, key, flag, formatValue(v)).Run()
}

func (b defaultsBackend) Unset(key string) error {
	if _, ok, _ := b.Lookup(key); !ok {
		return nil
	}
	return exec.Command("defaults", "delete", b.domain, key).Run()
}
