package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/markgate/markgate/internal/upstream"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// UpstreamHandler drives the browser-facing upstream login flow
type UpstreamHandler struct {
	bridge *upstream.Bridge
}

// NewUpstreamHandler creates a new upstream login handler
func NewUpstreamHandler(bridge *upstream.Bridge) *UpstreamHandler {
	return &UpstreamHandler{bridge: bridge}
}

// Login handles GET /upstream/login: starts a PKCE flow and sends the
// browser to the upstream authorization page. An optional return_to query
// names the local path to land on after the callback.
func (h *UpstreamHandler) Login(c *gin.Context) {
	returnTo := safeReturnTo(c.Query("return_to"))

	authURL, err := h.bridge.InitFlow(c.Request.Context(), returnTo)
	if err != nil {
		log.Printf("[Upstream] Failed to start login flow: %v", err)
		oauthError(c, http.StatusInternalServerError, errServerError, "failed to start upstream login")
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback handles GET /upstream/callback: consumes the flow state,
// exchanges the code, establishes the local session cookie and returns to
// the page the login started from.
func (h *UpstreamHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		oauthError(c, http.StatusBadRequest, errParam, c.Query("error_description"))
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		oauthError(c, http.StatusBadRequest, errInvalidRequest, "state and code are required")
		return
	}

	upstreamSession, returnTo, err := h.bridge.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		if errors.Is(err, upstream.ErrInvalidState) {
			oauthError(c, http.StatusBadRequest, errInvalidRequest, "unknown or already used state")
			return
		}
		log.Printf("[Upstream] Callback failed: %v", err)
		oauthError(c, http.StatusBadGateway, errServerError, "upstream login failed")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", upstreamSession.UserID)
	session.Set("session_id", upstreamSession.SessionID)
	session.Set("username", upstreamSession.Username)
	if err := session.Save(); err != nil {
		log.Printf("[Upstream] Failed to save session cookie: %v", err)
		oauthError(c, http.StatusInternalServerError, errServerError, "failed to establish session")
		return
	}

	c.Redirect(http.StatusFound, safeReturnTo(returnTo))
}

// Logout handles GET /logout: drops the upstream sessions for the user and
// clears the local cookie.
func (h *UpstreamHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)

	if userID, ok := session.Get("user_id").(string); ok && userID != "" {
		if err := h.bridge.LogoutUser(c.Request.Context(), userID); err != nil {
			log.Printf("[Upstream] Logout cleanup failed: %v", err)
		}
	}

	session.Clear()
	if err := session.Save(); err != nil {
		log.Printf("[Upstream] Failed to clear session cookie: %v", err)
	}

	c.Redirect(http.StatusFound, "/")
}
