package upstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/markgate/markgate/internal/cache"
	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/util"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Bridge drives the upstream login flow and keeps one upstream session per
// user alive: flow state in the cache, encrypted token pairs in the store.
type Bridge struct {
	provider *Provider
	store    *store.Store
	states   cache.Cache[models.FlowState]
	cipher   *util.TokenCipher
	config   *config.Config
	metrics  metrics.Recorder
}

// NewBridge creates a new upstream bridge
func NewBridge(
	provider *Provider,
	s *store.Store,
	states cache.Cache[models.FlowState],
	cipher *util.TokenCipher,
	cfg *config.Config,
	m metrics.Recorder,
) *Bridge {
	return &Bridge{
		provider: provider,
		store:    s,
		states:   states,
		cipher:   cipher,
		config:   cfg,
		metrics:  m,
	}
}

// InitFlow starts an upstream login: generates the PKCE verifier and CSRF
// state, stores them under the flow-state TTL and returns the upstream
// authorization URL to redirect the browser to.
func (b *Bridge) InitFlow(ctx context.Context, returnTo string) (string, error) {
	state, err := util.RandomToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	flowState := models.FlowState{
		State:        state,
		CodeVerifier: verifier,
		ReturnTo:     returnTo,
		CreatedAt:    time.Now(),
	}
	if err := b.states.Set(ctx, state, flowState, b.config.FlowStateExpiration); err != nil {
		return "", fmt.Errorf("failed to store flow state: %w", err)
	}

	return b.provider.AuthCodeURL(state, verifier), nil
}

// HandleCallback finishes an upstream login. The flow state is consumed
// atomically before anything else, so a replayed or forged state fails
// with ErrInvalidState and a given state can complete at most one login.
// Returns the new session and the ReturnTo target recorded at InitFlow.
func (b *Bridge) HandleCallback(
	ctx context.Context,
	state, code string,
) (*models.UpstreamSession, string, error) {
	flowState, err := b.states.GetDelete(ctx, state)
	if err != nil {
		b.metrics.RecordUpstreamLogin(false)
		return nil, "", ErrInvalidState
	}

	token, err := b.provider.Exchange(ctx, code, flowState.CodeVerifier)
	if err != nil {
		b.metrics.RecordUpstreamExchange(false)
		b.metrics.RecordUpstreamLogin(false)
		return nil, "", err
	}
	b.metrics.RecordUpstreamExchange(true)

	identity, err := b.provider.FetchIdentity(ctx, token.AccessToken)
	if err != nil {
		b.metrics.RecordUpstreamLogin(false)
		return nil, "", err
	}

	session, err := b.buildSession(identity, token)
	if err != nil {
		b.metrics.RecordUpstreamLogin(false)
		return nil, "", err
	}
	if err := b.store.SaveUpstreamSession(session); err != nil {
		b.metrics.RecordUpstreamLogin(false)
		return nil, "", fmt.Errorf("failed to store upstream session: %w", err)
	}

	b.metrics.RecordUpstreamLogin(true)
	log.Printf("[Upstream] Login completed for user=%s (%s)", identity.UserID, identity.Username)
	return session, flowState.ReturnTo, nil
}

// EnsureValidToken returns a decrypted upstream access token for the
// session, refreshing it first when it expires inside the configured
// refresh window. A successful refresh replaces the stored session
// wholesale with the new token pair; a failed refresh propagates to the
// caller so the stale token never masks a revoked upstream grant.
func (b *Bridge) EnsureValidToken(ctx context.Context, sessionID string) (string, error) {
	session, err := b.store.GetUpstreamSession(sessionID)
	if err != nil {
		return "", ErrSessionNotFound
	}

	withinWindow := time.Until(session.UpstreamExpiresAt) < b.config.UpstreamRefreshWindow

	if withinWindow {
		if session.RefreshTokenCipher == "" {
			if time.Now().After(session.UpstreamExpiresAt) {
				return "", fmt.Errorf("%w: session has no refresh token", ErrRefreshFailed)
			}
		} else {
			accessToken, err := b.refreshSession(ctx, session)
			if err != nil && !errors.Is(err, ErrRefreshFailed) {
				err = fmt.Errorf("%w: %v", ErrRefreshFailed, err)
			}
			return accessToken, err
		}
	}

	accessToken, err := b.cipher.Decrypt(session.AccessTokenCipher)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt upstream token: %w", err)
	}

	session.LastUsedAt = time.Now()
	if err := b.store.SaveUpstreamSession(session); err != nil {
		log.Printf("[Upstream] Failed to record session use: %v", err)
	}

	return accessToken, nil
}

// LogoutUser drops every upstream session belonging to the user, using the
// user id index maintained by the store.
func (b *Bridge) LogoutUser(ctx context.Context, userID string) error {
	if err := b.store.DeleteUpstreamSessionsByUserID(userID); err != nil {
		return fmt.Errorf("failed to delete upstream sessions: %w", err)
	}
	log.Printf("[Upstream] Dropped sessions for user=%s", userID)
	return nil
}

// refreshSession performs one upstream refresh and replaces the stored
// session on success, returning the new plaintext access token.
func (b *Bridge) refreshSession(ctx context.Context, session *models.UpstreamSession) (string, error) {
	refreshToken, err := b.cipher.Decrypt(session.RefreshTokenCipher)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token, err := b.provider.Refresh(ctx, refreshToken)
	if err != nil {
		b.metrics.RecordUpstreamRefresh(false)
		return "", err
	}

	// Some providers omit the refresh token on refresh; keep the old one
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	accessCipher, err := b.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return "", err
	}
	refreshCipher, err := b.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return "", err
	}

	session.AccessTokenCipher = accessCipher
	session.RefreshTokenCipher = refreshCipher
	session.UpstreamExpiresAt = token.Expiry
	session.LastUsedAt = time.Now()

	if err := b.store.SaveUpstreamSession(session); err != nil {
		b.metrics.RecordUpstreamRefresh(false)
		return "", fmt.Errorf("failed to store refreshed session: %w", err)
	}

	b.metrics.RecordUpstreamRefresh(true)
	log.Printf("[Upstream] Refreshed token for user=%s", session.UserID)
	return token.AccessToken, nil
}

func (b *Bridge) buildSession(identity *Identity, token *oauth2.Token) (*models.UpstreamSession, error) {
	accessCipher, err := b.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}

	var refreshCipher string
	if token.RefreshToken != "" {
		refreshCipher, err = b.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	return &models.UpstreamSession{
		SessionID:          uuid.New().String(),
		UserID:             identity.UserID,
		Username:           identity.Username,
		AccessTokenCipher:  accessCipher,
		RefreshTokenCipher: refreshCipher,
		UpstreamExpiresAt:  token.Expiry,
		CreatedAt:          now,
		LastUsedAt:         now,
	}, nil
}
