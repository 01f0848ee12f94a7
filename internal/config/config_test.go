package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_PATH", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", ":9090")
	t.Setenv("TYPING_TTL", "3s")
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("PUBLIC_URL", "https://chat.example.com/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "https://chat.example.com", cfg.Server.PublicURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Chat.TypingTTL)
	assert.True(t, cfg.Database.IsMemory())
	assert.Equal(t, []byte("s3cret"), cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
}

func TestLoadYAMLOverlayIsOverriddenByEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: ":7000"
  publicURL: "https://yaml.example.com"
redis:
  url: "redis://localhost:6379/0"
chat:
  typingTTL: 20s
  subscriptionBuffer: 8
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("PUBLIC_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("TYPING_TTL", "")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Port)
	assert.Equal(t, "https://yaml.example.com", cfg.Server.PublicURL)
	assert.Equal(t, []string{"https://yaml.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 20*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, 8, cfg.Chat.SubscriptionBuffer)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("READ_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ_TIMEOUT")
}

func TestAllowedOriginsDefaultToPublicURL(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("PUBLIC_URL", "https://chat.example.com:8443/app")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://chat.example.com:8443"}, cfg.Server.AllowedOrigins)
	assert.NotContains(t, cfg.Server.AllowedOrigins, "*")

	t.Setenv("PUBLIC_URL", "not a url")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBLIC_URL")
}
