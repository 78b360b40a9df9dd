package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CHAT_POLL_INTERVAL", "")
	t.Setenv("MINIO_USE_SSL", "")
	t.Setenv("AUTH_RATE_LIMIT", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.ChatPollInterval)
	assert.False(t, cfg.MinioUseSSL)
	assert.Equal(t, 20.0, cfg.AuthRateLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CHAT_POLL_INTERVAL", "250ms")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CACHE_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.ChatPollInterval)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}
