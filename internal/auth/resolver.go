package auth

import (
	"context"
	"errors"
	"log"

	"github.com/markgate/markgate/internal/services"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/upstream"
)

// ErrInvalidBearer is the only failure Resolve reports. It deliberately
// does not say whether the bearer was a rejected access token or an
// unknown session id.
var ErrInvalidBearer = errors.New("invalid bearer credential")

// Grant is a resolved bearer: the upstream access token to act with plus
// the identity and scope it carries. An empty Scope means the credential
// predates scoping and is unrestricted.
type Grant struct {
	UserID        string
	Username      string
	Scope         string
	UpstreamToken string
}

// Resolver maps incoming bearer credentials to upstream access tokens
type Resolver struct {
	tokens *services.TokenService
	bridge *upstream.Bridge
	store  *store.Store
}

// NewResolver creates a new bearer resolver
func NewResolver(tokens *services.TokenService, bridge *upstream.Bridge, s *store.Store) *Resolver {
	return &Resolver{tokens: tokens, bridge: bridge, store: s}
}

// Resolve classifies the bearer, validates it, and returns a usable
// upstream token for the user behind it. The upstream token is refreshed
// transparently when needed.
func (r *Resolver) Resolve(ctx context.Context, rawBearer string) (*Grant, error) {
	cred := ClassifyBearer(rawBearer)

	switch cred.Kind {
	case KindAccessToken:
		validation, err := r.tokens.ValidateAccessToken(ctx, cred.Raw)
		if err != nil {
			return nil, ErrInvalidBearer
		}

		session, err := r.store.GetUpstreamSessionByUserID(validation.UserID)
		if err != nil {
			log.Printf("[Auth] No upstream session for user=%s", validation.UserID)
			return nil, ErrInvalidBearer
		}

		upstreamToken, err := r.bridge.EnsureValidToken(ctx, session.SessionID)
		if err != nil {
			log.Printf("[Auth] Upstream token unavailable for user=%s: %v", validation.UserID, err)
			return nil, ErrInvalidBearer
		}

		return &Grant{
			UserID:        validation.UserID,
			Username:      session.Username,
			Scope:         validation.Scopes,
			UpstreamToken: upstreamToken,
		}, nil

	case KindSessionID:
		session, err := r.store.GetUpstreamSession(cred.Raw)
		if err != nil {
			return nil, ErrInvalidBearer
		}

		upstreamToken, err := r.bridge.EnsureValidToken(ctx, session.SessionID)
		if err != nil {
			log.Printf("[Auth] Upstream token unavailable for session bearer: %v", err)
			return nil, ErrInvalidBearer
		}

		return &Grant{
			UserID:        session.UserID,
			Username:      session.Username,
			UpstreamToken: upstreamToken,
		}, nil

	default:
		return nil, ErrInvalidBearer
	}
}
