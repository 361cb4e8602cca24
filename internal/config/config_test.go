package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, int64(5*1024*1024), cfg.Media.MaxUploadBytes)
	assert.Equal(t, 10, cfg.Search.PerPage)
	assert.Equal(t, 30*24*time.Hour, cfg.Security.RememberTTL)
	assert.False(t, cfg.CookieSecure())
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, int64(40_000_000), cfg.Media.MaxPixels)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BUNPRESS_SERVER_PORT", "8081")
	t.Setenv("BUNPRESS_SERVER_ENVIRONMENT", "production")
	t.Setenv("BUNPRESS_DATABASE_PASSWORD", "p@ss/w+rd")
	t.Setenv("BUNPRESS_STORAGE_ENDPOINT", "minio:9000")
	t.Setenv("BUNPRESS_STORAGE_USESSL", "true")
	t.Setenv("BUNPRESS_SECURITY_SESSIONTTL", "2h")
	t.Setenv("BUNPRESS_LOG_LEVEL", "DEBUG")
	t.Setenv("BUNPRESS_SERVER_TRUSTEDPROXIES", "10.0.0.0/8,192.168.1.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CookieSecure())
	assert.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 2*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.Server.TrustedProxies)
	assert.Contains(t, cfg.Database.DatabaseURL(), "p%40ss%2Fw%2Brd")
}

func TestCookieSecureOverride(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Environment: "production"}, Security: SecurityConfig{CookieSecure: "false"}}
	assert.False(t, cfg.CookieSecure())
}
