package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/markgate/markgate/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:       "https://auth.example.com",
		TokenAudience: "https://auth.example.com",
		JWTSecret:     "test-jwt-secret",
		JWTExpiration: time.Hour,
	}
}

func TestGenerateAndValidate_RoundTrip(t *testing.T) {
	p := NewProvider(testConfig())
	ctx := context.Background()

	result, err := p.GenerateAccessToken(ctx, "user-1", "client-1", "bookmarks:read")
	require.NoError(t, err)
	assert.Equal(t, TokenTypeBearer, result.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	validation, err := p.ValidateAccessToken(ctx, result.TokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", validation.UserID)
	assert.Equal(t, "client-1", validation.ClientID)
	assert.Equal(t, "bookmarks:read", validation.Scopes)
	assert.Equal(t, result.ExpiresAt.Unix(), validation.ExpiresAt.Unix())
}

func TestGenerateAccessToken_MissingSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	p := NewProvider(cfg)

	_, err := p.GenerateAccessToken(context.Background(), "user-1", "client-1", "")
	assert.ErrorIs(t, err, ErrSigningKeyMissing)
}

func TestValidateAccessToken_Tampered(t *testing.T) {
	p := NewProvider(testConfig())
	ctx := context.Background()

	result, err := p.GenerateAccessToken(ctx, "user-1", "client-1", "bookmarks:read")
	require.NoError(t, err)

	// Flip a character in the payload segment
	parts := strings.Split(result.TokenString, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = p.ValidateAccessToken(ctx, tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongKey(t *testing.T) {
	p := NewProvider(testConfig())

	result, err := p.GenerateAccessToken(context.Background(), "user-1", "client-1", "")
	require.NoError(t, err)

	other := testConfig()
	other.JWTSecret = "a-different-secret"

	_, err = NewProvider(other).ValidateAccessToken(context.Background(), result.TokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpiration = -time.Minute
	p := NewProvider(cfg)

	result, err := p.GenerateAccessToken(context.Background(), "user-1", "client-1", "")
	require.NoError(t, err)

	// Expiry is indistinguishable from any other rejection
	_, err = p.ValidateAccessToken(context.Background(), result.TokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongIssuerOrAudience(t *testing.T) {
	signFor := func(iss, aud string) string {
		claims := jwt.MapClaims{
			"iss":       iss,
			"sub":       "user-1",
			"aud":       aud,
			"exp":       time.Now().Add(time.Hour).Unix(),
			"iat":       time.Now().Unix(),
			"client_id": "client-1",
			"scope":     "",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte("test-jwt-secret"))
		require.NoError(t, err)
		return signed
	}

	p := NewProvider(testConfig())
	ctx := context.Background()

	_, err := p.ValidateAccessToken(ctx, signFor("https://other.example.com", "https://auth.example.com"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.ValidateAccessToken(ctx, signFor("https://auth.example.com", "https://other.example.com"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_RejectsAlgNone(t *testing.T) {
	p := NewProvider(testConfig())

	claims := jwt.MapClaims{
		"iss":       "https://auth.example.com",
		"sub":       "user-1",
		"aud":       "https://auth.example.com",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"client_id": "client-1",
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = p.ValidateAccessToken(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	p := NewProvider(testConfig())

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := p.ValidateAccessToken(context.Background(), input)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", input)
	}
}
