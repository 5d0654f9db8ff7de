package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, 12*time.Hour, s.TokenTTL)
	assert.Equal(t, 70.0, s.DefaultExpectedScore)
	assert.Equal(t, "redis://localhost:6379/0", s.RedisAddr)
	assert.Equal(t, 20, s.AuthRateLimit)
	assert.Equal(t, time.Minute, s.RateWindow)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "skillradar", s.CacheNamespace)
	assert.Empty(t, s.AllowedOrigins)
}

func TestLoadSettingsOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DEFAULT_EXPECTED_SCORE", "65.5")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.fr, ,https://admin.example.fr")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, 65.5, s.DefaultExpectedScore)
	assert.Equal(t, 30*time.Minute, s.TokenTTL)
	assert.Equal(t, []string{"https://app.example.fr", "https://admin.example.fr"}, s.AllowedOrigins)
}

func TestLoadSettingsRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadSettings()
	assert.Error(t, err)
}
