package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/util"
)

// PKCE verifier length bounds from RFC 7636
const (
	minVerifierLength = 43
	maxVerifierLength = 128
)

// AuthorizeRequest is a parsed /authorize query
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizationService validates authorization requests and manages the
// lifecycle of single-use authorization codes.
type AuthorizationService struct {
	store   *store.Store
	config  *config.Config
	metrics metrics.Recorder
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(
	s *store.Store,
	cfg *config.Config,
	m metrics.Recorder,
) *AuthorizationService {
	return &AuthorizationService{store: s, config: cfg, metrics: m}
}

// ValidateRequest checks an authorization request against the registered
// client and normalizes the requested scope. The returned scope falls back
// to the client's registered scope when the request omits one.
func (s *AuthorizationService) ValidateRequest(
	ctx context.Context,
	req *AuthorizeRequest,
) (*models.OAuthClient, string, error) {
	client, err := s.store.GetClientByClientID(req.ClientID)
	if err != nil {
		return nil, "", ErrClientNotFound
	}

	// Redirect URI is validated before anything that could redirect, so
	// errors below may be reported to it safely.
	if !client.HasRedirectURI(req.RedirectURI) {
		return nil, "", ErrInvalidRedirectURI
	}

	if req.ResponseType != "code" {
		return nil, "", ErrInvalidResponseType
	}

	if req.State == "" {
		return nil, "", ErrStateRequired
	}

	if req.CodeChallenge == "" {
		return nil, "", ErrPKCERequired
	}
	// S256 only. "plain" (and the implicit default when the parameter is
	// omitted) is rejected.
	if req.CodeChallengeMethod != "S256" {
		return nil, "", ErrUnsupportedChallengeMethod
	}

	scope := NormalizeScopes(req.Scope)
	if scope == "" {
		scope = client.Scopes
	} else if !ScopesWithin(scope, client.Scopes) {
		return nil, "", ErrInvalidScope
	}

	return client, scope, nil
}

// IssueCode mints a single-use authorization code bound to the client,
// user, redirect URI and PKCE challenge. Only the SHA-256 hash is stored.
func (s *AuthorizationService) IssueCode(
	ctx context.Context,
	client *models.OAuthClient,
	userID, redirectURI, scope, codeChallenge, codeChallengeMethod string,
) (string, error) {
	plainCode, err := util.CryptoRandomString(64)
	if err != nil {
		s.metrics.RecordCodeIssued(false)
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	code := &models.AuthorizationCode{
		CodeHash:            util.SHA256Hex(plainCode),
		ClientID:            client.ClientID,
		UserID:              userID,
		RedirectURI:         redirectURI,
		Scopes:              scope,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		ExpiresAt:           time.Now().Add(s.config.AuthCodeExpiration),
	}
	if err := s.store.CreateAuthorizationCode(code); err != nil {
		s.metrics.RecordCodeIssued(false)
		return "", fmt.Errorf("failed to store authorization code: %w", err)
	}

	s.metrics.RecordCodeIssued(true)
	log.Printf("[Authorize] Issued code for client=%s user=%s", client.ClientID, userID)
	return plainCode, nil
}

// RedeemCode consumes an authorization code and validates the redemption.
// The code row is deleted before any check runs: a failed redemption burns
// the code, and of two concurrent redemptions at most one can succeed.
// Checks run in a fixed order and fail fast with a distinct error:
// existence, client binding, redirect binding, expiry, PKCE.
func (s *AuthorizationService) RedeemCode(
	ctx context.Context,
	clientID, plainCode, redirectURI, codeVerifier string,
) (*models.AuthorizationCode, error) {
	code, err := s.store.ConsumeAuthorizationCode(util.SHA256Hex(plainCode))
	if err != nil {
		s.metrics.RecordCodeRedemption("not_found")
		return nil, ErrAuthCodeNotFound
	}

	if code.ClientID != clientID {
		s.metrics.RecordCodeRedemption("client_mismatch")
		return nil, ErrAuthCodeClientMismatch
	}

	if code.RedirectURI != redirectURI {
		s.metrics.RecordCodeRedemption("redirect_mismatch")
		return nil, ErrAuthCodeRedirectMismatch
	}

	if code.IsExpired() {
		s.metrics.RecordCodeRedemption("expired")
		return nil, ErrAuthCodeExpired
	}

	if !verifyPKCE(codeVerifier, code.CodeChallenge) {
		s.metrics.RecordCodeRedemption("pkce_failed")
		return nil, ErrInvalidCodeVerifier
	}

	s.metrics.RecordCodeRedemption("success")
	log.Printf("[Authorize] Redeemed code for client=%s user=%s", code.ClientID, code.UserID)
	return code, nil
}

// verifyPKCE checks an S256 challenge: base64url(sha256(verifier)) must
// equal the stored challenge.
func verifyPKCE(codeVerifier, codeChallenge string) bool {
	if len(codeVerifier) < minVerifierLength || len(codeVerifier) > maxVerifierLength {
		return false
	}
	sum := sha256.Sum256([]byte(codeVerifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return util.ConstantTimeEqual(computed, codeChallenge)
}
