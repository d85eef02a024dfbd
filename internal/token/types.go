package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeBearer is the only token type this server issues
const TokenTypeBearer = "Bearer"

// Result is a freshly signed access token. ExpiresIn is the configured
// TTL in whole seconds; deriving it from ExpiresAt at response time would
// truncate away the microseconds spent between signing and responding.
type Result struct {
	TokenString string
	TokenType   string
	ExpiresAt   time.Time
	ExpiresIn   int
	Claims      jwt.MapClaims
}

// Validation is the outcome of a successful token verification
type Validation struct {
	UserID    string
	ClientID  string
	Scopes    string
	ExpiresAt time.Time
	Claims    jwt.MapClaims
}
