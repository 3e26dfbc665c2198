// Package config implements configuration management with environment
// variable support. All ambient lookups happen here once at startup; the
// resulting Config is passed explicitly into services and drivers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Store     StoreConfig     `json:"store"`
	Groq      GroqConfig      `json:"groq"`
	Connector ConnectorConfig `json:"connector"`
}

type ServerConfig struct {
	Port            int           `json:"port" env:"SERVER_PORT" default:"8600"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type StoreConfig struct {
	Path string `json:"path" env:"INTEL_AGENT_STORE" default:"intel_data.json"`
}

// GroqConfig controls the remote generation tier. An empty APIKey or
// ForceLocal=true disables remote generation everywhere it is attempted.
type GroqConfig struct {
	APIKey        string        `json:"-" env:"GROQ_API_KEY"`
	Endpoint      string        `json:"endpoint" env:"GROQ_ENDPOINT" default:"https://api.groq.com/openai/v1/chat/completions"`
	Model         string        `json:"model" env:"GROQ_MODEL" default:"llama3-8b-8192"`
	FallbackModel string        `json:"fallback_model" env:"GROQ_FALLBACK_MODEL" default:"llama3-70b-8192"`
	Temperature   float64       `json:"temperature" env:"GROQ_TEMPERATURE" default:"0.2"`
	Timeout       time.Duration `json:"timeout" env:"GROQ_TIMEOUT" default:"30s"`
	ForceLocal    bool          `json:"force_local" env:"FORCE_LOCAL_AI" default:"false"`
}

// ConnectorConfig controls source ingestion. EnableFeeds is the typed
// "feed support available" capability flag; when false the connector only
// synthesizes demo events.
type ConnectorConfig struct {
	EnableFeeds      bool          `json:"enable_feeds" env:"CONNECTOR_ENABLE_FEEDS" default:"true"`
	EnableGitHub     bool          `json:"enable_github" env:"CONNECTOR_ENABLE_GITHUB" default:"true"`
	DemoMode         bool          `json:"demo_mode" env:"DEMO_MODE" default:"false"`
	FetchTimeout     time.Duration `json:"fetch_timeout" env:"CONNECTOR_FETCH_TIMEOUT" default:"30s"`
	FetchParallelism int           `json:"fetch_parallelism" env:"CONNECTOR_FETCH_PARALLELISM" default:"4"`
	MaxItemsPerFeed  int           `json:"max_items_per_feed" env:"CONNECTOR_MAX_ITEMS_PER_FEED" default:"3"`
	MaxReleases      int           `json:"max_releases" env:"CONNECTOR_MAX_RELEASES" default:"8"`
	MaxRawLength     int           `json:"max_raw_length" env:"CONNECTOR_MAX_RAW_LENGTH" default:"1500"`
	Cooldown         time.Duration `json:"cooldown" env:"CONNECTOR_COOLDOWN" default:"2s"`
	GitHubAPIBase    string        `json:"github_api_base" env:"CONNECTOR_GITHUB_API_BASE" default:"https://api.github.com"`
}

// RemoteEnabled reports whether the remote generation tier may be attempted.
func (c *Config) RemoteEnabled() bool {
	return c.Groq.APIKey != "" && !c.Groq.ForceLocal && !c.Connector.DemoMode
}

// ModelCandidates returns the ordered model list for the remote tier: the
// configured preferred model first, then the fixed fallback.
func (g *GroqConfig) ModelCandidates() []string {
	if g.Model == g.FallbackModel {
		return []string{g.Model}
	}

	return []string{g.Model, g.FallbackModel}
}

func Load() (*Config, error) {
	config := &Config{}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func loadFromEnv(config *Config) error {
	var err error

	if config.Server.Port, err = envInt("SERVER_PORT", 8600); err != nil {
		return err
	}

	if config.Server.ShutdownTimeout, err = envDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return err
	}

	config.Store.Path = envString("INTEL_AGENT_STORE", "intel_data.json")

	config.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	config.Groq.Endpoint = envString("GROQ_ENDPOINT", "https://api.groq.com/openai/v1/chat/completions")
	config.Groq.Model = envString("GROQ_MODEL", "llama3-8b-8192")
	config.Groq.FallbackModel = envString("GROQ_FALLBACK_MODEL", "llama3-70b-8192")
	config.Groq.ForceLocal = envBool("FORCE_LOCAL_AI", false)

	if config.Groq.Temperature, err = envFloat("GROQ_TEMPERATURE", 0.2); err != nil {
		return err
	}

	if config.Groq.Timeout, err = envDuration("GROQ_TIMEOUT", 30*time.Second); err != nil {
		return err
	}

	config.Connector.EnableFeeds = envBool("CONNECTOR_ENABLE_FEEDS", true)
	config.Connector.EnableGitHub = envBool("CONNECTOR_ENABLE_GITHUB", true)
	config.Connector.DemoMode = envBool("DEMO_MODE", false)
	config.Connector.GitHubAPIBase = envString("CONNECTOR_GITHUB_API_BASE", "https://api.github.com")

	if config.Connector.FetchTimeout, err = envDuration("CONNECTOR_FETCH_TIMEOUT", 30*time.Second); err != nil {
		return err
	}

	if config.Connector.FetchParallelism, err = envInt("CONNECTOR_FETCH_PARALLELISM", 4); err != nil {
		return err
	}

	if config.Connector.MaxItemsPerFeed, err = envInt("CONNECTOR_MAX_ITEMS_PER_FEED", 3); err != nil {
		return err
	}

	if config.Connector.MaxReleases, err = envInt("CONNECTOR_MAX_RELEASES", 8); err != nil {
		return err
	}

	if config.Connector.MaxRawLength, err = envInt("CONNECTOR_MAX_RAW_LENGTH", 1500); err != nil {
		return err
	}

	if config.Connector.Cooldown, err = envDuration("CONNECTOR_COOLDOWN", 2*time.Second); err != nil {
		return err
	}

	return nil
}

func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Store.Path == "" {
		return fmt.Errorf("store path must not be empty")
	}

	if config.Groq.Model == "" {
		return fmt.Errorf("groq model must not be empty")
	}

	if config.Groq.Temperature < 0 || config.Groq.Temperature > 2 {
		return fmt.Errorf("invalid groq temperature: %f", config.Groq.Temperature)
	}

	if config.Groq.Timeout <= 0 {
		return fmt.Errorf("groq timeout must be positive")
	}

	if config.Connector.FetchTimeout <= 0 {
		return fmt.Errorf("connector fetch timeout must be positive")
	}

	if config.Connector.FetchParallelism < 1 {
		return fmt.Errorf("connector fetch parallelism must be at least 1")
	}

	if config.Connector.MaxItemsPerFeed < 1 {
		return fmt.Errorf("connector max items per feed must be at least 1")
	}

	if config.Connector.MaxRawLength < 1 {
		return fmt.Errorf("connector max raw length must be at least 1")
	}

	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	return d, nil
}

// envBool accepts 1/true/yes (any case) as true; anything else is false.
func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}

	switch v {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
