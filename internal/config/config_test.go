package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ServerDefaults(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 100.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, 200, cfg.Server.RateLimitBurst)
}

func TestLoad_ServerOverrides(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.cardvault.io, https://admin.cardvault.io")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.cardvault.io", "https://admin.cardvault.io"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, 10, cfg.Server.RateLimitBurst)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "fast")

	_, err := Load()
	assert.ErrorContains(t, err, "RATE_LIMIT_RPS")
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidate_Complete(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{URL: "postgres://localhost/cardvault"},
		Auth:     AuthConfig{JWTSecret: "secret"},
	}
	assert.NoError(t, cfg.Validate())
}
