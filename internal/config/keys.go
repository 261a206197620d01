package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PURSUIT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PURSUIT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PURSUIT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "goals.weekly_jobs", typ: kInt, env: "PURSUIT_GOALS_WEEKLY_JOBS",
		apply:   func(cfg *Config, v any) { cfg.Goals.WeeklyJobs = v.(int) },
		extract: func(cfg Config) any { return cfg.Goals.WeeklyJobs },
	},
	{
		key: "goals.weekly_dealflow", typ: kInt, env: "PURSUIT_GOALS_WEEKLY_DEALFLOW",
		apply:   func(cfg *Config, v any) { cfg.Goals.WeeklyDealflow = v.(int) },
		extract: func(cfg Config) any { return cfg.Goals.WeeklyDealflow },
	},
	{
		key: "dedup.threshold", typ: kFloat, env: "PURSUIT_DEDUP_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Dedup.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Dedup.Threshold },
	},
	{
		key: "scrape.exa_api_key", typ: kString, env: "PURSUIT_EXA_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Scrape.ExaAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Scrape.ExaAPIKey },
	},
	{
		key: "scrape.exa_base_url", typ: kString, env: "PURSUIT_SCRAPE_EXA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Scrape.ExaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Scrape.ExaBaseURL },
	},
	{
		key: "scrape.default_results", typ: kInt, env: "PURSUIT_SCRAPE_DEFAULT_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Scrape.DefaultResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Scrape.DefaultResults },
	},
	{
		key: "scrape.lookback_days", typ: kInt, env: "PURSUIT_SCRAPE_LOOKBACK_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Scrape.LookbackDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Scrape.LookbackDays },
	},
	{
		key: "scrape.poll_interval", typ: kString, env: "PURSUIT_SCRAPE_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Scrape.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Scrape.PollInterval },
	},
	{
		key: "scrape.concurrency", typ: kInt, env: "PURSUIT_SCRAPE_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Scrape.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Scrape.Concurrency },
	},
	{
		key: "scrape.enabled", typ: kBool, env: "PURSUIT_SCRAPE_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Scrape.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Scrape.Enabled },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts a raw string to the Go type a key stores.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	}
	return raw, nil
}

func (t keyType) String() string {
	switch t {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kFloat:
		return "float"
	}
	return "string"
}

// applyBackend applies every non-secret key the user has set. A value that
// does not parse is reported and skipped.
func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Lookup(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from config key %s=%q: %v. Using default value.\n", s.typ, s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from env var %s=%q: %v. Using default value.\n", s.typ, s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
