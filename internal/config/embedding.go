package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig defines configuration for the external embedding provider.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`     // Provider type: "jina", "openai-compatible"
	Model      string `mapstructure:"model"`        // Model name/ID
	APIKey     string `mapstructure:"api_key"`      // API key (can be set directly or via env var)
	APIKeyEnv  string `mapstructure:"api_key_env"`  // Environment variable name for API key
	BaseURL    string `mapstructure:"base_url"`     // Base URL override for the embedding endpoint
	BaseURLEnv string `mapstructure:"base_url_env"` // Environment variable name for base URL
	Dimensions int    `mapstructure:"dimensions"`   // Embedding vector dimensions

	Timeout      time.Duration `mapstructure:"timeout"`        // Per-call timeout
	MaxRetries   int           `mapstructure:"max_retries"`    // Bounded retry count for transient failures
	RetryWait    time.Duration `mapstructure:"retry_wait"`     // Initial backoff delay
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"` // Backoff ceiling
}

// ResolveEnvVars resolves environment variable references in the configuration.
// If APIKeyEnv or BaseURLEnv are set, their values are loaded from environment.
// Direct values (APIKey, BaseURL) take precedence if already set.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}

	if c.BaseURLEnv != "" && c.BaseURL == "" {
		if val := os.Getenv(c.BaseURLEnv); val != "" {
			c.BaseURL = val
		}
	}
}

// Validate checks that the embedding configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("embedding: provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}

	switch c.Provider {
	case "jina", "openai-compatible":
		// Valid providers
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}

	return nil
}

// ValidateWithAPIKey validates the configuration including API key requirement.
// Use this when the embedding will actually be used (not just configured).
func (c *EmbeddingConfig) ValidateWithAPIKey() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("embedding: api_key is required (set directly or via EMBEDDING_API_KEY)")
	}
	return nil
}
