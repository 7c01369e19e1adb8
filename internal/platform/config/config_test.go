package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schemagate")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://ollama:11434", cfg.Inference.URL)
	assert.Equal(t, "qwen2.5:0.5b", cfg.Inference.Model)
	assert.Equal(t, 120*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 1024, cfg.Inference.MaxTokens)
	assert.InDelta(t, 0.1, cfg.Inference.Temperature, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.Auth.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Auth.NegativeCacheTTL)
	assert.Equal(t, 3*time.Second, cfg.Auth.StoreTimeout)
	assert.Equal(t, 20000, cfg.Extraction.MaxInputChars)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Server.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("INFERENCE_URL", "http://localhost:11434/")
	t.Setenv("INFERENCE_TIMEOUT", "30s")
	t.Setenv("INFERENCE_PULL_ON_START", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.0.0/16")
	t.Setenv("DEV_CREDENTIALS", "waro_devkey0000000000000=tenant-a, waro_devkey1111111111111=tenant-b")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.Inference.URL)
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout)
	assert.True(t, cfg.Inference.PullOnStart)
	assert.Len(t, cfg.Server.TrustedProxies, 2)
	require.Len(t, cfg.Auth.DevCredentials, 2)
	assert.Equal(t, DevCredential{Key: "waro_devkey1111111111111", TenantID: "tenant-b"}, cfg.Auth.DevCredentials[1])
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("requires a credential source", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DEV_CREDENTIALS", "")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL or DEV_CREDENTIALS")
	})

	t.Run("reports every malformed value", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/schemagate")
		t.Setenv("CACHE_TTL", "soon")
		t.Setenv("MAX_INPUT_CHARS", "lots")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_TTL")
		assert.Contains(t, err.Error(), "MAX_INPUT_CHARS")
	})

	t.Run("negative TTL longer than positive TTL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/schemagate")
		t.Setenv("CACHE_TTL", "5s")
		t.Setenv("NEGATIVE_CACHE_TTL", "10s")

		_, err := FromEnv()
		require.ErrorContains(t, err, "NEGATIVE_CACHE_TTL")
	})

	t.Run("dev credentials rejected in production", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("DEV_CREDENTIALS", "waro_devkey0000000000000=tenant-a")

		_, err := FromEnv()
		require.ErrorContains(t, err, "not allowed in production")
	})
}
