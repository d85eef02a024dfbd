package handlers

import (
	"net/http"
	"strings"

	"github.com/markgate/markgate/internal/auth"

	"github.com/gin-gonic/gin"
)

// UserInfoHandler resolves bearer credentials to the identity behind them
type UserInfoHandler struct {
	resolver *auth.Resolver
}

// NewUserInfoHandler creates a new userinfo handler
func NewUserInfoHandler(resolver *auth.Resolver) *UserInfoHandler {
	return &UserInfoHandler{resolver: resolver}
}

// UserInfo handles GET /userinfo. It accepts both credential kinds the
// resolver knows: signed access tokens and legacy upstream session ids.
func (h *UserInfoHandler) UserInfo(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.Header("WWW-Authenticate", `Bearer realm="markgate"`)
		oauthError(c, http.StatusUnauthorized, errInvalidRequest, "bearer credential required")
		return
	}

	grant, err := h.resolver.Resolve(c.Request.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		c.Header("WWW-Authenticate", `Bearer realm="markgate", error="invalid_token"`)
		oauthError(c, http.StatusUnauthorized, "invalid_token", "bearer credential rejected")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sub":      grant.UserID,
		"username": grant.Username,
		"scope":    grant.Scope,
	})
}
