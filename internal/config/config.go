package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "password",
}

// Config aggregates every tunable of the relay server.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL selects the transcript store backend: a postgres://
	// URL in production, a file: path for the embedded sqlite driver
	// in development.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:glg-chat.db"`

	// RedisURL backs the user directory. Empty falls back to the
	// in-memory directory, which only makes sense for local runs.
	RedisURL string `env:"REDIS_URL"`

	// AuthSecret signs and verifies client identity tokens.
	AuthSecret string `env:"AUTH_SECRET" envDefault:"dev-secret-change-me"`

	AI AIConfig
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Production reports whether the server runs with production
// expectations (strict secrets, external stores).
func (c *Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate rejects configurations that would be unsafe to run with in
// production and warns about the rest.
func (c *Config) Validate() error {
	if c.Production() {
		if len(c.AuthSecret) < 32 {
			return fmt.Errorf("AUTH_SECRET must be at least 32 characters in production (generate with: openssl rand -base64 32)")
		}
		for _, weak := range knownWeakSecrets {
			if c.AuthSecret == weak {
				return fmt.Errorf("AUTH_SECRET is a known weak default; set a strong secret in production")
			}
		}
		if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
			log.Warn().Msg("DATABASE_URL is not postgres in production: transcripts will live in a local sqlite file")
		}
		if c.RedisURL == "" {
			log.Warn().Msg("REDIS_URL is empty in production: user directory will not survive restarts")
		}
	}
	return nil
}

// AIConfig describes the Ark chat model used by the session engine.
type AIConfig struct {
	APIKey      string   `env:"ARK_API_KEY"`
	AccessKey   string   `env:"ARK_ACCESS_KEY"`
	SecretKey   string   `env:"ARK_SECRET_KEY"`
	Model       string   `env:"ARK_MODEL"`
	BaseURL     string   `env:"ARK_BASE_URL"`
	Region      string   `env:"ARK_REGION"`
	Temperature *float64 `env:"ARK_TEMPERATURE"`
	TopP        *float64 `env:"ARK_TOP_P"`
	MaxTokens   *int     `env:"ARK_MAX_TOKENS"`
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
