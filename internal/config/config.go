package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/pursuit/internal/dedup"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Goals   GoalsConfig
	Dedup   DedupConfig
	Scrape  ScrapeConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// GoalsConfig holds the weekly targets used until a goal is set explicitly.
type GoalsConfig struct {
	WeeklyJobs     int
	WeeklyDealflow int
}

type DedupConfig struct {
	Threshold float64
}

// DetectorConfig is the duplicate detector's view of the dedup settings.
func (d DedupConfig) DetectorConfig() dedup.Config {
	return dedup.Config{Threshold: d.Threshold}
}

type ScrapeConfig struct {
	Enabled        bool
	ExaAPIKey      string
	ExaBaseURL     string
	DefaultResults int
	LookbackDays   int
	PollInterval   string
	Concurrency    int
}

// PollDuration parses PollInterval, falling back to one second.
func (c ScrapeConfig) PollDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func defaults() Config {
	return Config{
		Server:  ServerConfig{Port: 4100},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
		Goals: GoalsConfig{
			WeeklyJobs:     10,
			WeeklyDealflow: 5,
		},
		Dedup: DedupConfig{Threshold: 0.85},
		Scrape: ScrapeConfig{
			Enabled:        true,
			ExaBaseURL:     "https://api.exa.ai",
			DefaultResults: 50,
			LookbackDays:   30,
			PollInterval:   "1s",
			Concurrency:    4,
		},
	}
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Goals.WeeklyJobs < 0 || c.Goals.WeeklyDealflow < 0 {
		return fmt.Errorf("weekly goals must be non-negative")
	}
	if err := c.Dedup.DetectorConfig().Validate(); err != nil {
		return fmt.Errorf("dedup.threshold: %w", err)
	}
	if c.Scrape.DefaultResults <= 0 || c.Scrape.DefaultResults > 100 {
		return fmt.Errorf("scrape.default_results must be in 1..100, got %d", c.Scrape.DefaultResults)
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be positive, got %d", c.Scrape.Concurrency)
	}
	return nil
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.pursuit.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/pursuit/config.json
// and secrets come from environment variables or the secrets file.
//
// Environment variables (PURSUIT_*) override backend values on all platforms.
// The Exa API key is optional; without it the scrape endpoints report an
// error and everything else keeps working.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

func loadWith(b Backend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Scrape.ExaAPIKey == "" {
		if key, err := kc.Get(keychainService, "exa_api_key"); err == nil && key != "" {
			cfg.Scrape.ExaAPIKey = key
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ExaKeyHint tells the user where the Exa API key can be provided.
func ExaKeyHint() string {
	return "set PURSUIT_EXA_API_KEY" + apiKeyHint()
}
