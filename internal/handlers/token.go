package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/services"
	"github.com/markgate/markgate/internal/token"

	"github.com/gin-gonic/gin"
)

// tokenRequest is a token endpoint request body, accepted as a form post
// or as JSON.
type tokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	Code         string `form:"code" json:"code"`
	RedirectURI  string `form:"redirect_uri" json:"redirect_uri"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	CodeVerifier string `form:"code_verifier" json:"code_verifier"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	Scope        string `form:"scope" json:"scope"`
}

// TokenHandler serves the token endpoint
type TokenHandler struct {
	clients *services.ClientService
	authz   *services.AuthorizationService
	tokens  *services.TokenService
}

// NewTokenHandler creates a new token endpoint handler
func NewTokenHandler(
	clients *services.ClientService,
	authz *services.AuthorizationService,
	tokens *services.TokenService,
) *TokenHandler {
	return &TokenHandler{clients: clients, authz: authz, tokens: tokens}
}

// Token handles POST /token for the authorization_code and refresh_token
// grants. Responses carry no-store cache headers per RFC 6749 §5.1.
func (h *TokenHandler) Token(c *gin.Context) {
	var req tokenRequest
	var err error
	if c.ContentType() == "application/json" {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBind(&req)
	}
	if err != nil {
		oauthError(c, http.StatusBadRequest, errInvalidRequest, "malformed token request")
		return
	}

	if req.ClientID == "" {
		oauthError(c, http.StatusBadRequest, errInvalidRequest, "client_id is required")
		return
	}

	client, err := h.clients.Authenticate(c.Request.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		c.Header("WWW-Authenticate", `Basic realm="markgate"`)
		oauthError(c, http.StatusUnauthorized, errInvalidClient, "client authentication failed")
		return
	}

	if !clientAllowsGrant(client, req.GrantType) {
		oauthError(c, http.StatusBadRequest, errUnauthorizedClient,
			"client is not registered for grant_type "+req.GrantType)
		return
	}

	switch req.GrantType {
	case "authorization_code":
		h.authorizationCodeGrant(c, client, &req)
	case "refresh_token":
		h.refreshTokenGrant(c, client, &req)
	default:
		oauthError(c, http.StatusBadRequest, errUnsupportedGrantType,
			"supported grant types are authorization_code and refresh_token")
	}
}

func (h *TokenHandler) authorizationCodeGrant(c *gin.Context, client *models.OAuthClient, req *tokenRequest) {
	if req.Code == "" || req.RedirectURI == "" || req.CodeVerifier == "" {
		oauthError(c, http.StatusBadRequest, errInvalidRequest,
			"code, redirect_uri and code_verifier are required")
		return
	}

	code, err := h.authz.RedeemCode(
		c.Request.Context(),
		client.ClientID, req.Code, req.RedirectURI, req.CodeVerifier,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAuthCodeNotFound):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "authorization code is invalid or already used")
		case errors.Is(err, services.ErrAuthCodeClientMismatch):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "authorization code was issued to another client")
		case errors.Is(err, services.ErrAuthCodeRedirectMismatch):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "redirect_uri does not match the authorization request")
		case errors.Is(err, services.ErrAuthCodeExpired):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "authorization code has expired")
		case errors.Is(err, services.ErrInvalidCodeVerifier):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "PKCE verification failed")
		default:
			oauthError(c, http.StatusInternalServerError, errServerError, "failed to redeem authorization code")
		}
		return
	}

	pair, err := h.tokens.IssueTokens(c.Request.Context(), code.UserID, client.ClientID, code.Scopes)
	if err != nil {
		if errors.Is(err, token.ErrSigningKeyMissing) {
			oauthError(c, http.StatusInternalServerError, errServerError, "token signing is not configured")
			return
		}
		oauthError(c, http.StatusInternalServerError, errServerError, "failed to issue tokens")
		return
	}

	writeNoStore(c)
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken.TokenString,
		"token_type":    pair.AccessToken.TokenType,
		"expires_in":    pair.AccessToken.ExpiresIn,
		"refresh_token": pair.RefreshToken,
		"scope":         pair.Scope,
	})
}

// refreshTokenGrant issues a fresh access token. The refresh token is not
// rotated, so the response deliberately omits one.
func (h *TokenHandler) refreshTokenGrant(c *gin.Context, client *models.OAuthClient, req *tokenRequest) {
	if req.RefreshToken == "" {
		oauthError(c, http.StatusBadRequest, errInvalidRequest, "refresh_token is required")
		return
	}

	accessToken, scope, err := h.tokens.Refresh(
		c.Request.Context(),
		client.ClientID, req.RefreshToken, req.Scope,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRefreshToken):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "refresh token is invalid")
		case errors.Is(err, services.ErrRefreshTokenExpired):
			oauthError(c, http.StatusBadRequest, errInvalidGrant, "refresh token has expired")
		case errors.Is(err, services.ErrInvalidScope):
			oauthError(c, http.StatusBadRequest, errInvalidScope, "requested scope exceeds the original grant")
		case errors.Is(err, token.ErrSigningKeyMissing):
			oauthError(c, http.StatusInternalServerError, errServerError, "token signing is not configured")
		default:
			oauthError(c, http.StatusInternalServerError, errServerError, "failed to refresh token")
		}
		return
	}

	writeNoStore(c)
	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken.TokenString,
		"token_type":   accessToken.TokenType,
		"expires_in":   accessToken.ExpiresIn,
		"scope":        scope,
	})
}

func clientAllowsGrant(client *models.OAuthClient, grantType string) bool {
	for _, gt := range strings.Fields(client.GrantTypes) {
		if gt == grantType {
			return true
		}
	}
	return false
}

func writeNoStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
