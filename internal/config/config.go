package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	Provider string `env:"WAYSTATION_PROVIDER" envDefault:"gemini"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	Temperature float64       `env:"WAYSTATION_TEMPERATURE" envDefault:"0.9"`
	Timeout     time.Duration `env:"WAYSTATION_TIMEOUT" envDefault:"60s"`
	Retries     int           `env:"WAYSTATION_RETRIES" envDefault:"2"`

	Store   string `env:"WAYSTATION_STORE" envDefault:"file"`
	SaveDir string `env:"WAYSTATION_SAVE_DIR" envDefault:".saves"`
	DBPath  string `env:"WAYSTATION_DB_PATH" envDefault:"waystation.db"`
	Session string `env:"WAYSTATION_SESSION" envDefault:"current"`

	// FallbackCatalog optionally replaces the built-in fallback scenes.
	FallbackCatalog string `env:"WAYSTATION_FALLBACK_CATALOG"`
}

// LoadConfig loads the configuration from environment variables. A missing
// API key is not an error; it only turns generation off.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("WAYSTATION_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.Provider)
	}
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("WAYSTATION_STORE must be file, sqlite or memory, got %q", c.Store)
	}
	if c.Retries < 0 {
		return fmt.Errorf("WAYSTATION_RETRIES must not be negative, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("WAYSTATION_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("WAYSTATION_TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Model returns the model name for the selected provider.
func (c *Config) Model() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// GenerationEnabled reports whether the selected provider has a key.
func (c *Config) GenerationEnabled() bool {
	return c.APIKey() != ""
}
