package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
)

const (
	keychainService = "pursuit"
	apiTokenAccount = "api_token"
	apiTokenEnvVar  = "PURSUIT_API_TOKEN"
)

// Keychain reads and writes secrets in the platform secret store.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct{}

// NewKeychain returns the platform secret store: macOS Keychain on darwin,
// a 0600 JSON file under $XDG_DATA_HOME/pursuit elsewhere.
func NewKeychain() Keychain {
	return platformKeychain{}
}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token guarding the local API. The
// environment wins; otherwise the stored token is used, and one is generated
// and stored on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if tok := os.Getenv(apiTokenEnvVar); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(keychainService, apiTokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	tok := rand.Text()
	if err := kc.Set(keychainService, apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
