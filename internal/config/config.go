package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend constants
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string // Public base URL, also the token issuer
	IsProduction bool

	// JWT settings
	JWTSecret     string // May be empty; token issuance fails at first use
	TokenAudience string
	JWTExpiration time.Duration

	// Session settings
	SessionSecret string
	SessionMaxAge int // seconds

	// Token encryption at rest
	EncryptionSecret string

	// Lifetimes
	AuthCodeExpiration     time.Duration // Authorization code lifetime (default: 5m)
	FlowStateExpiration    time.Duration // PKCE/CSRF flow state lifetime (default: 5m)
	RefreshTokenExpiration time.Duration // Refresh token lifetime (default: 720h = 30 days)

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Cache
	CacheType     string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Upstream provider (the bookmark service this server federates with)
	UpstreamClientID      string
	UpstreamClientSecret  string
	UpstreamAuthURL       string
	UpstreamTokenURL      string
	UpstreamIdentityURL   string
	UpstreamRedirectURL   string
	UpstreamScopes        []string
	UpstreamTimeout       time.Duration // HTTP client timeout for upstream requests (default: 15s)
	UpstreamRefreshWindow time.Duration // Refresh when token expires within this window (default: 1h)

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "markgate.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/")

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      baseURL,
		IsProduction: getEnvBool("PRODUCTION", false),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenAudience: getEnv("TOKEN_AUDIENCE", baseURL),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION", time.Hour),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 3600),

		EncryptionSecret: getEnv("ENCRYPTION_SECRET", ""),

		AuthCodeExpiration:     getEnvDuration("AUTH_CODE_EXPIRATION", 5*time.Minute),
		FlowStateExpiration:    getEnvDuration("FLOW_STATE_EXPIRATION", 5*time.Minute),
		RefreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", 720*time.Hour), // 30 days

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		CacheType:     getEnv("CACHE_TYPE", CacheTypeMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		UpstreamClientID:      getEnv("UPSTREAM_CLIENT_ID", ""),
		UpstreamClientSecret:  getEnv("UPSTREAM_CLIENT_SECRET", ""),
		UpstreamAuthURL:       getEnv("UPSTREAM_AUTH_URL", ""),
		UpstreamTokenURL:      getEnv("UPSTREAM_TOKEN_URL", ""),
		UpstreamIdentityURL:   getEnv("UPSTREAM_IDENTITY_URL", ""),
		UpstreamRedirectURL:   getEnv("UPSTREAM_REDIRECT_URL", baseURL+"/upstream/callback"),
		UpstreamScopes:        getEnvSlice("UPSTREAM_SCOPES", []string{"bookmarks:read", "bookmarks:write"}),
		UpstreamTimeout:       getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		UpstreamRefreshWindow: getEnvDuration("UPSTREAM_REFRESH_WINDOW", time.Hour),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks settings that the server cannot run without.
// JWT_SECRET is deliberately not checked here: registration, discovery and
// the upstream login flow stay available without it, and token issuance
// reports the missing key when first asked to sign.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	if c.EncryptionSecret == "" {
		return errors.New("ENCRYPTION_SECRET is required to protect upstream tokens at rest")
	}
	if c.UpstreamClientID == "" || c.UpstreamClientSecret == "" {
		return errors.New("UPSTREAM_CLIENT_ID and UPSTREAM_CLIENT_SECRET are required")
	}
	if c.UpstreamAuthURL == "" || c.UpstreamTokenURL == "" {
		return errors.New("UPSTREAM_AUTH_URL and UPSTREAM_TOKEN_URL are required")
	}
	if c.UpstreamIdentityURL == "" {
		return errors.New("UPSTREAM_IDENTITY_URL is required")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.DatabaseDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
