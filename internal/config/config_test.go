package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "file:glg-chat.db", cfg.DatabaseURL)
	assert.False(t, cfg.Production())
	assert.False(t, cfg.AI.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("ARK_MODEL", "doubao-pro")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.True(t, cfg.Production())
	assert.True(t, cfg.AI.Enabled())
}

func TestValidateRejectsWeakSecretInProduction(t *testing.T) {
	cfg := &Config{Environment: "production", AuthSecret: "dev-secret-change-me"}
	require.Error(t, cfg.Validate())

	cfg.AuthSecret = "4fC1qkX0mPzR8sT2vY5wA7bD9eG1hJ3k"
	require.NoError(t, cfg.Validate())
}

func TestValidateAllowsDevDefaults(t *testing.T) {
	cfg := &Config{Environment: "development", AuthSecret: "dev-secret-change-me"}
	require.NoError(t, cfg.Validate())
}
