// Package config builds the typed configuration value that is constructed
// once at process start and injected into every component.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/spf13/cast"
)

// Defaults applied when neither the settings file nor the environment
// supplies a value.
const (
	DefaultModelName     = "phi-3-mini"
	DefaultProvider      = "serpapi"
	defaultMaxResults    = 10
	defaultCycleInterval = 5 * time.Minute
	defaultErrorBackoff  = time.Minute
	defaultRateFloor     = time.Second
)

// ModelConfig describes the completion model parameters.
type ModelConfig struct {
	Name        string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// LLMConfig selects and parameterises the completion backend.
type LLMConfig struct {
	// UseLocal targets a local LM Studio style server; false expects BaseURL.
	UseLocal bool
	BaseURL  string
	APIKey   string
	Model    ModelConfig
}

// SearchConfig selects and parameterises the web search provider.
type SearchConfig struct {
	Provider   string
	APIKey     string
	MaxResults int
	RateFloor  time.Duration
}

// StorageConfig points at the findings store and the seen-URL cache.
// Empty addresses select the in-memory implementations.
type StorageConfig struct {
	MongoAddr  string
	MongoDB    string
	MongoCol   string
	MongoUser  string
	MongoPwd   string
	RedisAddr  string
}

// Config is the process-wide configuration value.
type Config struct {
	// Prompt is the research topic driving every cycle. Required.
	Prompt string
	// Continuous repeats cycles with CycleInterval between them;
	// false runs exactly one cycle and shuts down.
	Continuous    bool
	CycleInterval time.Duration
	ErrorBackoff  time.Duration
	// Listen enables the status HTTP server when non-empty.
	Listen   string
	LogLevel string

	LLM     LLMConfig
	Search  SearchConfig
	Storage StorageConfig
}

// Load assembles the configuration from the already-loaded shared settings
// plus environment overrides, then validates it. It must succeed before any
// network activity starts.
func Load() (*Config, error) {
	cfg := &Config{
		Prompt:        strings.TrimSpace(gconfig.Shared.GetString("settings.prompt")),
		Continuous:    gconfig.Shared.GetBool("settings.continuous"),
		CycleInterval: gconfig.Shared.GetDuration("settings.cycle_interval"),
		ErrorBackoff:  gconfig.Shared.GetDuration("settings.error_backoff"),
		Listen:        gconfig.Shared.GetString("settings.listen"),
		LogLevel:      envOr("LOG_LEVEL", gconfig.Shared.GetString("log-level")),
		LLM: LLMConfig{
			UseLocal: envOr("USE_LMSTUDIO", "1") == "1",
			BaseURL:  os.Getenv("OPENAI_BASE_URL"),
			APIKey:   envOr("OPENAI_API_KEY", "lm-studio"),
			Model: ModelConfig{
				Name:        envOr("MODEL", gconfig.Shared.GetString("settings.model.name")),
				Temperature: floatOr(cast.ToFloat64(gconfig.Shared.Get("settings.model.temperature")), 0.7),
				TopP:        floatOr(cast.ToFloat64(gconfig.Shared.Get("settings.model.top_p")), 0.9),
				MaxTokens:   intOr(gconfig.Shared.GetInt("settings.model.max_tokens"), 1024),
			},
		},
		Search: SearchConfig{
			Provider:   strings.ToLower(envOr("SEARCH_PROVIDER", gconfig.Shared.GetString("settings.search.provider"))),
			MaxResults: intOr(gconfig.Shared.GetInt("settings.search.max_results"), defaultMaxResults),
			RateFloor:  gconfig.Shared.GetDuration("settings.search.rate_floor"),
		},
		Storage: StorageConfig{
			MongoAddr: gconfig.Shared.GetString("settings.storage.mongo.addr"),
			MongoDB:   gconfig.Shared.GetString("settings.storage.mongo.db"),
			MongoCol:  gconfig.Shared.GetString("settings.storage.mongo.collection"),
			MongoUser: gconfig.Shared.GetString("settings.storage.mongo.user"),
			MongoPwd:  gconfig.Shared.GetString("settings.storage.mongo.pwd"),
			RedisAddr: gconfig.Shared.GetString("settings.storage.redis.addr"),
		},
	}

	if cfg.LLM.Model.Name == "" {
		cfg.LLM.Model.Name = DefaultModelName
	}
	if cfg.Search.Provider == "" {
		cfg.Search.Provider = DefaultProvider
	}
	switch cfg.Search.Provider {
	case "serpapi":
		cfg.Search.APIKey = envOr("SERPAPI_API_KEY", gconfig.Shared.GetString("settings.search.api_key"))
	case "brave":
		cfg.Search.APIKey = envOr("BRAVE_API_KEY", gconfig.Shared.GetString("settings.search.api_key"))
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = defaultCycleInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultErrorBackoff
	}
	if cfg.Search.RateFloor <= 0 {
		cfg.Search.RateFloor = defaultRateFloor
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate configuration")
	}

	return cfg, nil
}

// Validate rejects configurations that cannot possibly run a cycle.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("research prompt cannot be empty")
	}
	if c.Search.Provider != "serpapi" && c.Search.Provider != "brave" {
		return errors.Errorf("unknown search provider %q", c.Search.Provider)
	}
	if c.Search.APIKey == "" {
		return errors.Errorf("api key for search provider %q is not configured", c.Search.Provider)
	}
	if !c.LLM.UseLocal && c.LLM.BaseURL == "" {
		return errors.New("OPENAI_BASE_URL is required when not using the local llm backend")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func floatOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}
