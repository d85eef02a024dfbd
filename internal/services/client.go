package services

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"

	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dummyBcryptHash is compared against when the client does not exist, so a
// failed lookup costs the same as a failed secret check.
var dummyBcryptHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("markgate-dummy-secret"), bcrypt.DefaultCost)
	return h
}()

var supportedGrantTypes = map[string]bool{
	"authorization_code": true,
	"refresh_token":      true,
}

// RegistrationRequest carries dynamic client registration metadata
type RegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	Scope                   string   `json:"scope"`
}

// RegistrationResult pairs the stored client with its one-time plaintext
// secret. The secret is only populated for confidential clients and is not
// recoverable afterwards.
type RegistrationResult struct {
	Client       *models.OAuthClient
	ClientSecret string
}

// ClientService manages dynamic registration and client authentication
type ClientService struct {
	store        *store.Store
	defaultScope string
	metrics      metrics.Recorder
}

// NewClientService creates a new client service
func NewClientService(s *store.Store, cfg *config.Config, m metrics.Recorder) *ClientService {
	return &ClientService{
		store:        s,
		defaultScope: NormalizeScopes(strings.Join(cfg.UpstreamScopes, " ")),
		metrics:      m,
	}
}

// Register validates metadata and persists a new client. The client_id is
// generated server side; supplied identifiers are ignored.
func (s *ClientService) Register(
	ctx context.Context,
	req *RegistrationRequest,
) (*RegistrationResult, error) {
	if strings.TrimSpace(req.ClientName) == "" {
		return nil, fmt.Errorf("%w: client_name is required", ErrInvalidClientMetadata)
	}
	if len(req.RedirectURIs) == 0 {
		return nil, fmt.Errorf("%w: at least one redirect_uri is required", ErrInvalidClientMetadata)
	}
	for _, uri := range req.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			return nil, err
		}
	}

	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = models.AuthMethodNone
	}
	if authMethod != models.AuthMethodNone && authMethod != models.AuthMethodSecretPost {
		return nil, fmt.Errorf(
			"%w: unsupported token_endpoint_auth_method %q",
			ErrInvalidClientMetadata, req.TokenEndpointAuthMethod,
		)
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code", "refresh_token"}
	}
	for _, gt := range grantTypes {
		if !supportedGrantTypes[gt] {
			return nil, fmt.Errorf("%w: unsupported grant_type %q", ErrInvalidClientMetadata, gt)
		}
	}

	scope := NormalizeScopes(req.Scope)
	if scope == "" {
		scope = s.defaultScope
	}

	client := &models.OAuthClient{
		ClientID:                uuid.New().String(),
		ClientName:              strings.TrimSpace(req.ClientName),
		RedirectURIs:            models.StringArray(req.RedirectURIs),
		GrantTypes:              strings.Join(grantTypes, " "),
		TokenEndpointAuthMethod: authMethod,
		Scopes:                  scope,
	}

	var clientSecret string
	if authMethod == models.AuthMethodSecretPost {
		secret, err := client.GenerateClientSecret()
		if err != nil {
			s.metrics.RecordClientRegistered("confidential", false)
			return nil, fmt.Errorf("failed to generate client secret: %w", err)
		}
		clientSecret = secret
	}

	if err := s.store.CreateClient(client); err != nil {
		s.metrics.RecordClientRegistered(clientType(client), false)
		return nil, fmt.Errorf("failed to store client: %w", err)
	}

	s.metrics.RecordClientRegistered(clientType(client), true)
	log.Printf("[Client] Registered %s client %s (%s)", clientType(client), client.ClientID, client.ClientName)

	return &RegistrationResult{Client: client, ClientSecret: clientSecret}, nil
}

// GetClient looks up a client by its client_id
func (s *ClientService) GetClient(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	client, err := s.store.GetClientByClientID(clientID)
	if err != nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// Authenticate verifies token-endpoint credentials. Unknown client and
// wrong secret produce the same error and comparable timing, so the
// endpoint cannot be used to enumerate registered client ids.
func (s *ClientService) Authenticate(
	ctx context.Context,
	clientID, clientSecret string,
) (*models.OAuthClient, error) {
	client, err := s.store.GetClientByClientID(clientID)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyBcryptHash, []byte(clientSecret))
		return nil, ErrClientAuthFailed
	}

	if client.IsPublic() {
		// Public clients present no secret; reject one if supplied so a
		// leaked id cannot be upgraded with a guessed credential.
		if clientSecret != "" {
			return nil, ErrClientAuthFailed
		}
		return client, nil
	}

	if !client.ValidateClientSecret([]byte(clientSecret)) {
		return nil, ErrClientAuthFailed
	}
	return client, nil
}

func clientType(c *models.OAuthClient) string {
	if c.IsPublic() {
		return "public"
	}
	return "confidential"
}

// validateRedirectURI enforces absolute https URIs, with plain http allowed
// only for loopback addresses.
func validateRedirectURI(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URI", ErrInvalidRedirectURI, uri)
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("%w: %q must not contain a fragment", ErrInvalidRedirectURI, uri)
	}

	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		host := parsed.Hostname()
		if host == "localhost" {
			return nil
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return nil
		}
		return fmt.Errorf("%w: http is only allowed for loopback hosts, got %q", ErrInvalidRedirectURI, uri)
	default:
		return fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidRedirectURI, uri)
	}
}
