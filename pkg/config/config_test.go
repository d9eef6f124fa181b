package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_NAME", "content_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")
	t.Setenv("ENABLE_CACHE", "true")
	t.Setenv("PUBLISHED_CACHE_TTL", "30s")
	t.Setenv("S3_BUCKET", "content-files")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "content_test", cfg.Database.Name)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.PublishedTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ReviewsTTL)
	assert.True(t, cfg.Storage.Enabled())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	t.Setenv("RATING_RECOMPUTE_RETRY_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.Ratings.RetryDelay)
	assert.Equal(t, 3, cfg.Ratings.RecomputeRetries)
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("ENV", EnvProduction)

	t.Setenv("JWT_SECRET", "dev_secret")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInsecureJWTSecret)

	t.Setenv("JWT_SECRET", "  ")
	_, err = Load()
	assert.ErrorIs(t, err, ErrInsecureJWTSecret)

	t.Setenv("ENV", EnvDevelopment)
	t.Setenv("JWT_SECRET", "dev_secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev_secret", cfg.JWT.Secret)
}
