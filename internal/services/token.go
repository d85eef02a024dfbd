package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/token"
	"github.com/markgate/markgate/internal/util"
)

// TokenPair is the outcome of an authorization_code grant: a signed access
// token plus the opaque refresh token plaintext.
type TokenPair struct {
	AccessToken  *token.Result
	RefreshToken string
	Scope        string
}

// TokenService issues and refreshes downstream credentials
type TokenService struct {
	store    *store.Store
	config   *config.Config
	provider *token.Provider
	metrics  metrics.Recorder
}

// NewTokenService creates a new token service
func NewTokenService(
	s *store.Store,
	cfg *config.Config,
	provider *token.Provider,
	m metrics.Recorder,
) *TokenService {
	return &TokenService{store: s, config: cfg, provider: provider, metrics: m}
}

// IssueTokens creates an access token and a fresh refresh token for a
// redeemed authorization code. The refresh token plaintext leaves this
// method exactly once; only its SHA-256 hash is stored.
func (s *TokenService) IssueTokens(
	ctx context.Context,
	userID, clientID, scope string,
) (*TokenPair, error) {
	start := time.Now()

	accessToken, err := s.provider.GenerateAccessToken(ctx, userID, clientID, scope)
	if err != nil {
		return nil, err
	}

	refreshPlain, err := util.RandomToken(48)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshToken := &models.RefreshToken{
		TokenHash: util.SHA256Hex(refreshPlain),
		ClientID:  clientID,
		UserID:    userID,
		Scopes:    scope,
		ExpiresAt: time.Now().Add(s.config.RefreshTokenExpiration),
	}
	if err := s.store.CreateRefreshToken(refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.metrics.RecordTokenIssued("access", "authorization_code", time.Since(start))
	s.metrics.RecordTokenIssued("refresh", "authorization_code", 0)
	log.Printf("[Token] Issued tokens for client=%s user=%s", clientID, userID)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshPlain,
		Scope:        scope,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is fixed: it is never rotated and stays valid until its
// original expiry. Presenting a token owned by another client is
// indistinguishable from presenting an unknown token.
func (s *TokenService) Refresh(
	ctx context.Context,
	clientID, refreshPlain, requestedScope string,
) (*token.Result, string, error) {
	start := time.Now()

	refreshToken, err := s.store.GetRefreshTokenByHash(util.SHA256Hex(refreshPlain))
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, "", ErrInvalidRefreshToken
	}

	// Client isolation: token hash alone is not enough
	if refreshToken.ClientID != clientID {
		s.metrics.RecordTokenRefresh(false)
		return nil, "", ErrInvalidRefreshToken
	}

	if refreshToken.IsExpired() {
		s.metrics.RecordTokenRefresh(false)
		return nil, "", ErrRefreshTokenExpired
	}

	scope := NormalizeScopes(requestedScope)
	if scope == "" {
		scope = refreshToken.Scopes
	} else if !ScopesWithin(scope, refreshToken.Scopes) {
		s.metrics.RecordTokenRefresh(false)
		return nil, "", ErrInvalidScope
	}

	accessToken, err := s.provider.GenerateAccessToken(ctx, refreshToken.UserID, clientID, scope)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, "", err
	}

	if err := s.store.TouchRefreshToken(refreshToken.ID); err != nil {
		log.Printf("[Token] Failed to record refresh token use: %v", err)
	}

	s.metrics.RecordTokenRefresh(true)
	s.metrics.RecordTokenIssued("access", "refresh_token", time.Since(start))
	log.Printf("[Token] Refreshed access token for client=%s user=%s", clientID, refreshToken.UserID)

	return accessToken, scope, nil
}

// ValidateAccessToken verifies a signed access token
func (s *TokenService) ValidateAccessToken(
	ctx context.Context,
	tokenString string,
) (*token.Validation, error) {
	start := time.Now()

	validation, err := s.provider.ValidateAccessToken(ctx, tokenString)
	if err != nil {
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
		return nil, err
	}

	s.metrics.RecordTokenValidation("valid", time.Since(start))
	return validation, nil
}
