package token

import (
	"context"
	"fmt"
	"time"

	"github.com/markgate/markgate/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Provider generates and validates HS256 JWT access tokens
type Provider struct {
	config *config.Config
}

// NewProvider creates a new token provider
func NewProvider(cfg *config.Config) *Provider {
	return &Provider{config: cfg}
}

// GenerateAccessToken creates a signed access token for a user and client
func (p *Provider) GenerateAccessToken(
	ctx context.Context,
	userID, clientID, scopes string,
) (*Result, error) {
	if p.config.JWTSecret == "" {
		return nil, ErrSigningKeyMissing
	}

	now := time.Now()
	expiresAt := now.Add(p.config.JWTExpiration)
	claims := jwt.MapClaims{
		"iss":       p.config.BaseURL,
		"sub":       userID,
		"aud":       p.config.TokenAudience,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
		"jti":       uuid.New().String(),
		"client_id": clientID,
		"scope":     scopes,
		// Upstream identity, duplicated from sub for consumers that read a
		// named claim instead of the subject.
		"user_id": userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(p.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Result{
		TokenString: tokenString,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int(p.config.JWTExpiration.Seconds()),
		Claims:      claims,
	}, nil
}

// ValidateAccessToken verifies signature, expiry, issuer and audience.
// Every failure is reported as ErrInvalidToken.
func (p *Provider) ValidateAccessToken(
	ctx context.Context,
	tokenString string,
) (*Validation, error) {
	if p.config.JWTSecret == "" {
		return nil, ErrSigningKeyMissing
	}

	token, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(p.config.JWTSecret), nil
		},
		jwt.WithIssuer(p.config.BaseURL),
		jwt.WithAudience(p.config.TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	clientID, _ := claims["client_id"].(string)
	scopes, _ := claims["scope"].(string)
	if userID == "" || clientID == "" {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Validation{
		UserID:    userID,
		ClientID:  clientID,
		Scopes:    scopes,
		ExpiresAt: time.Unix(int64(exp), 0),
		Claims:    claims,
	}, nil
}
