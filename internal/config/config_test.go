package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Load()
	cfg.EncryptionSecret = "test-encryption-secret"
	cfg.UpstreamClientID = "upstream-client"
	cfg.UpstreamClientSecret = "upstream-secret"
	cfg.UpstreamAuthURL = "https://upstream.example.com/oauth/authorize"
	cfg.UpstreamTokenURL = "https://upstream.example.com/oauth/token"
	cfg.UpstreamIdentityURL = "https://upstream.example.com/api/user"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, CacheTypeMemory, cfg.CacheType)
	assert.Equal(t, time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 5*time.Minute, cfg.AuthCodeExpiration)
	assert.Equal(t, 5*time.Minute, cfg.FlowStateExpiration)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenExpiration)
	assert.Equal(t, time.Hour, cfg.UpstreamRefreshWindow)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("BASE_URL", "https://auth.example.com/")
	t.Setenv("AUTH_CODE_EXPIRATION", "90s")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("UPSTREAM_SCOPES", "bookmarks:read, profile ")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ServerAddr)
	// Trailing slash is trimmed so issuer and metadata URLs compose cleanly
	assert.Equal(t, "https://auth.example.com", cfg.BaseURL)
	assert.Equal(t, "https://auth.example.com", cfg.TokenAudience)
	assert.Equal(t, 90*time.Second, cfg.AuthCodeExpiration)
	assert.Equal(t, CacheTypeRedis, cfg.CacheType)
	assert.Equal(t, []string{"bookmarks:read", "profile"}, cfg.UpstreamScopes)
}

func TestValidate_Success(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingJWTSecretIsAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""

	// The server must still start without a signing key; the failure
	// surfaces at first token issuance instead.
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingEncryptionSecret(t *testing.T) {
	cfg := validConfig()
	cfg.EncryptionSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_MissingUpstream(t *testing.T) {
	cfg := validConfig()
	cfg.UpstreamClientID = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.UpstreamTokenURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.UpstreamIdentityURL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_UnsupportedDriver(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseDriver = "oracle"
	assert.Error(t, cfg.Validate())
}
