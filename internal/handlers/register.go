package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/markgate/markgate/internal/services"

	"github.com/gin-gonic/gin"
)

// RegisterHandler serves dynamic client registration
type RegisterHandler struct {
	clients *services.ClientService
}

// NewRegisterHandler creates a new registration handler
func NewRegisterHandler(clients *services.ClientService) *RegisterHandler {
	return &RegisterHandler{clients: clients}
}

// Register handles POST /register: validates the metadata, stores the
// client and returns the issued identifiers. The client_secret appears in
// this response only.
func (h *RegisterHandler) Register(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		oauthError(c, http.StatusBadRequest, errInvalidClientMetadata, "request body must be a JSON object")
		return
	}

	result, err := h.clients.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRedirectURI):
			oauthError(c, http.StatusBadRequest, errInvalidRedirectURI, err.Error())
		case errors.Is(err, services.ErrInvalidClientMetadata):
			oauthError(c, http.StatusBadRequest, errInvalidClientMetadata, err.Error())
		default:
			oauthError(c, http.StatusInternalServerError, errServerError, "failed to register client")
		}
		return
	}

	client := result.Client
	response := gin.H{
		"client_id":                  client.ClientID,
		"client_name":                client.ClientName,
		"redirect_uris":              []string(client.RedirectURIs),
		"grant_types":                strings.Split(client.GrantTypes, " "),
		"response_types":             []string{"code"},
		"token_endpoint_auth_method": client.TokenEndpointAuthMethod,
		"scope":                      client.Scopes,
		"client_id_issued_at":        client.CreatedAt.Unix(),
	}
	if result.ClientSecret != "" {
		response["client_secret"] = result.ClientSecret
		response["client_secret_expires_at"] = 0
	}

	c.JSON(http.StatusCreated, response)
}
