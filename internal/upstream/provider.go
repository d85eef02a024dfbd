package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/markgate/markgate/internal/config"

	"golang.org/x/oauth2"
)

// Identity is the upstream provider's answer to "who owns this token"
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// Provider is the OAuth client for the single configured upstream bookmark
// service. All token traffic goes through the injected HTTP client so the
// bounded timeout applies to every upstream call.
type Provider struct {
	config      *oauth2.Config
	identityURL string
	httpClient  *http.Client
}

// NewProvider creates the upstream OAuth provider from configuration
func NewProvider(cfg *config.Config, httpClient *http.Client) *Provider {
	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.UpstreamClientID,
			ClientSecret: cfg.UpstreamClientSecret,
			RedirectURL:  cfg.UpstreamRedirectURL,
			Scopes:       cfg.UpstreamScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.UpstreamAuthURL,
				TokenURL: cfg.UpstreamTokenURL,
			},
		},
		identityURL: cfg.UpstreamIdentityURL,
		httpClient:  httpClient,
	}
}

// AuthCodeURL builds the upstream authorization URL carrying the CSRF
// state and the S256 challenge for the given verifier.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange redeems an upstream authorization code with the PKCE verifier.
// Exactly one attempt: a consumed code must never be retried.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a fresh upstream token. Single
// attempt, same reasoning as Exchange.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := p.config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return token, nil
}

// FetchIdentity asks the upstream provider who owns the access token
func (p *Provider) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.identityURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrIdentityFetchFailed, resp.StatusCode, body)
	}

	// Providers disagree on field names and id types; accept the common shapes
	var raw struct {
		ID       json.Number `json:"id"`
		UserID   string      `json:"user_id"`
		Username string      `json:"username"`
		Login    string      `json:"login"`
		Email    string      `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityFetchFailed, err)
	}

	identity := &Identity{
		UserID:   raw.ID.String(),
		Username: raw.Username,
		Email:    raw.Email,
	}
	if identity.UserID == "" {
		identity.UserID = raw.UserID
	}
	if identity.Username == "" {
		identity.Username = raw.Login
	}
	if identity.UserID == "" {
		return nil, fmt.Errorf("%w: response carries no user id", ErrIdentityFetchFailed)
	}
	return identity, nil
}

// clientContext routes oauth2's internal HTTP calls through our client
func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
