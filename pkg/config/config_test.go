package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"AUTH_PEPPER", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "COOKIE_SECRET", "SESSION_STORE", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "ENV"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, SessionStorePostgres, cfg.Auth.SessionStore)
	assert.Equal(t, "session", cfg.Cookie.Name)
	assert.Equal(t, "/auth", cfg.Cookie.Path)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, 2, cfg.Hashing.Workers)

	secrets := []string{cfg.Auth.Pepper, cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, cfg.Cookie.Secret}
	seen := map[string]bool{}
	for _, s := range secrets {
		assert.Len(t, s, 64)
		assert.False(t, seen[s], "secrets must be distinct")
		seen[s] = true
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("AUTH_PEPPER", "pepper")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REFRESH_TOKEN_TTL", "600")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pepper", cfg.Auth.Pepper)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, SessionStoreRedis, cfg.Auth.SessionStore)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsUnknownSessionStore(t *testing.T) {
	t.Setenv("SESSION_STORE", "memcached")
	_, err := Load()
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"3600", time.Hour},
		{"90m", 90 * time.Minute},
		{"0", time.Minute},
		{"-5", time.Minute},
		{"soon", time.Minute},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseDuration(tc.raw, time.Minute), tc.raw)
	}
}
