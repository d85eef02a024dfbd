package handlers

import (
	"net/http"

	"github.com/markgate/markgate/internal/config"

	"github.com/gin-gonic/gin"
)

// MetadataHandler serves the well-known discovery documents
type MetadataHandler struct {
	config *config.Config
}

// NewMetadataHandler creates a new metadata handler
func NewMetadataHandler(cfg *config.Config) *MetadataHandler {
	return &MetadataHandler{config: cfg}
}

// AuthorizationServer handles GET /.well-known/oauth-authorization-server
// (RFC 8414)
func (h *MetadataHandler) AuthorizationServer(c *gin.Context) {
	base := h.config.BaseURL
	c.JSON(http.StatusOK, gin.H{
		"issuer":                                base,
		"authorization_endpoint":                base + "/authorize",
		"token_endpoint":                        base + "/token",
		"registration_endpoint":                 base + "/register",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":      []string{"S256"},
		"token_endpoint_auth_methods_supported": []string{"none", "client_secret_post"},
		"scopes_supported":                      h.config.UpstreamScopes,
	})
}

// ProtectedResource handles GET /.well-known/oauth-protected-resource
// (RFC 9728)
func (h *MetadataHandler) ProtectedResource(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"resource":                 h.config.TokenAudience,
		"authorization_servers":    []string{h.config.BaseURL},
		"bearer_methods_supported": []string{"header"},
		"scopes_supported":         h.config.UpstreamScopes,
	})
}
