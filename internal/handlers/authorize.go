package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markgate/markgate/internal/middleware"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/services"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/upstream"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// consentTemplate renders the consent form shown to an authenticated user
// before an authorization code is issued. The original request parameters
// ride along as hidden fields.
var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorize {{.ClientName}}</title>
    <style>
        body { font-family: -apple-system, sans-serif; max-width: 480px; margin: 60px auto; padding: 0 20px; }
        .scopes { background: #f5f5f5; border-radius: 6px; padding: 12px 20px; }
        .actions { margin-top: 24px; }
        button { padding: 10px 24px; border-radius: 6px; border: none; cursor: pointer; font-size: 15px; }
        .approve { background: #2da44e; color: white; margin-right: 12px; }
        .deny { background: #eee; }
    </style>
</head>
<body>
    <h2>{{.ClientName}} wants access</h2>
    <p>Signed in as <strong>{{.Username}}</strong>. The application requests:</p>
    <ul class="scopes">
        {{range .Scopes}}<li><code>{{.}}</code></li>{{end}}
    </ul>
    <form method="POST" action="/authorize">
        <input type="hidden" name="client_id" value="{{.ClientID}}">
        <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
        <input type="hidden" name="response_type" value="code">
        <input type="hidden" name="scope" value="{{.Scope}}">
        <input type="hidden" name="state" value="{{.State}}">
        <input type="hidden" name="code_challenge" value="{{.CodeChallenge}}">
        <input type="hidden" name="code_challenge_method" value="{{.CodeChallengeMethod}}">
        <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
        <div class="actions">
            <button class="approve" type="submit" name="decision" value="approve">Approve</button>
            <button class="deny" type="submit" name="decision" value="deny">Deny</button>
        </div>
    </form>
</body>
</html>`))

// AuthorizeHandler serves the authorization endpoint
type AuthorizeHandler struct {
	authz  *services.AuthorizationService
	bridge *upstream.Bridge
	store  *store.Store
}

// NewAuthorizeHandler creates a new authorization endpoint handler
func NewAuthorizeHandler(
	authz *services.AuthorizationService,
	bridge *upstream.Bridge,
	s *store.Store,
) *AuthorizeHandler {
	return &AuthorizeHandler{authz: authz, bridge: bridge, store: s}
}

func parseAuthorizeRequest(c *gin.Context) *services.AuthorizeRequest {
	param := func(key string) string {
		if c.Request.Method == http.MethodPost {
			return c.PostForm(key)
		}
		return c.Query(key)
	}
	return &services.AuthorizeRequest{
		ClientID:            param("client_id"),
		RedirectURI:         param("redirect_uri"),
		ResponseType:        param("response_type"),
		Scope:               param("scope"),
		State:               param("state"),
		CodeChallenge:       param("code_challenge"),
		CodeChallengeMethod: param("code_challenge_method"),
	}
}

// Authorize handles GET /authorize. Unauthenticated users are sent through
// the upstream login first and come back to this exact URL; returning
// users with a remembered grant covering the scope skip the consent form.
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	req := parseAuthorizeRequest(c)

	client, scope, err := h.authz.ValidateRequest(c.Request.Context(), req)
	if err != nil {
		h.validationError(c, req, err)
		return
	}

	session := sessions.Default(c)
	userID, ok := session.Get("user_id").(string)
	if !ok || userID == "" {
		authURL, err := h.bridge.InitFlow(c.Request.Context(), c.Request.URL.RequestURI())
		if err != nil {
			log.Printf("[Authorize] Failed to start upstream login: %v", err)
			h.errorRedirect(c, req, errServerError, "failed to start upstream login")
			return
		}
		c.Redirect(http.StatusFound, authURL)
		return
	}

	// Skip consent when a prior grant already covers the requested scope
	if prior, err := h.store.GetUserAuthorization(userID, client.ClientID); err == nil {
		if services.ScopesWithin(scope, prior.Scopes) {
			h.issueAndRedirect(c, req, client, userID, scope)
			return
		}
	}

	username, _ := session.Get("username").(string)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := consentTemplate.Execute(c.Writer, gin.H{
		"ClientName":          client.ClientName,
		"Username":            username,
		"Scopes":              strings.Fields(scope),
		"ClientID":            req.ClientID,
		"RedirectURI":         req.RedirectURI,
		"Scope":               scope,
		"State":               req.State,
		"CodeChallenge":       req.CodeChallenge,
		"CodeChallengeMethod": req.CodeChallengeMethod,
		"CSRFToken":           middleware.GetCSRFToken(c),
	}); err != nil {
		log.Printf("[Authorize] Failed to render consent page: %v", err)
	}
}

// Decide handles POST /authorize, the submitted consent form. Approval is
// remembered per user and client so the form is skipped next time.
func (h *AuthorizeHandler) Decide(c *gin.Context) {
	session := sessions.Default(c)
	userID, ok := session.Get("user_id").(string)
	if !ok || userID == "" {
		oauthError(c, http.StatusUnauthorized, errInvalidRequest, "authentication required")
		return
	}

	// The hidden fields are untrusted input and get the same validation as
	// the original query.
	req := parseAuthorizeRequest(c)
	client, scope, err := h.authz.ValidateRequest(c.Request.Context(), req)
	if err != nil {
		h.validationError(c, req, err)
		return
	}

	if c.PostForm("decision") != "approve" {
		h.errorRedirect(c, req, errAccessDenied, "the user denied the request")
		return
	}

	if err := h.store.UpsertUserAuthorization(&models.UserAuthorization{
		UserID:    userID,
		ClientID:  client.ClientID,
		Scopes:    scope,
		GrantedAt: time.Now(),
	}); err != nil {
		log.Printf("[Authorize] Failed to remember consent: %v", err)
	}

	h.issueAndRedirect(c, req, client, userID, scope)
}

func (h *AuthorizeHandler) issueAndRedirect(
	c *gin.Context,
	req *services.AuthorizeRequest,
	client *models.OAuthClient,
	userID, scope string,
) {
	code, err := h.authz.IssueCode(
		c.Request.Context(),
		client, userID, req.RedirectURI, scope,
		req.CodeChallenge, req.CodeChallengeMethod,
	)
	if err != nil {
		log.Printf("[Authorize] Failed to issue code: %v", err)
		h.errorRedirect(c, req, errServerError, "failed to issue authorization code")
		return
	}

	params := url.Values{"code": {code}}
	if req.State != "" {
		params.Set("state", req.State)
	}
	c.Redirect(http.StatusFound, redirectWithParams(req.RedirectURI, params))
}

// validationError reports a rejected authorization request. Until the
// redirect URI itself has been verified nothing may be redirected, so
// unknown clients and bad redirect URIs get a direct response.
func (h *AuthorizeHandler) validationError(c *gin.Context, req *services.AuthorizeRequest, err error) {
	switch {
	case errors.Is(err, services.ErrClientNotFound):
		oauthError(c, http.StatusBadRequest, errInvalidRequest, "unknown client_id")
	case errors.Is(err, services.ErrInvalidRedirectURI):
		oauthError(c, http.StatusBadRequest, errInvalidRequest, "redirect_uri is not registered for this client")
	case errors.Is(err, services.ErrInvalidResponseType):
		h.errorRedirect(c, req, errUnsupportedResponseTyp, "only response_type=code is supported")
	case errors.Is(err, services.ErrStateRequired):
		h.errorRedirect(c, req, errInvalidRequest, "state is required")
	case errors.Is(err, services.ErrPKCERequired):
		h.errorRedirect(c, req, errInvalidRequest, "code_challenge is required")
	case errors.Is(err, services.ErrUnsupportedChallengeMethod):
		h.errorRedirect(c, req, errInvalidRequest, "code_challenge_method must be S256")
	case errors.Is(err, services.ErrInvalidScope):
		h.errorRedirect(c, req, errInvalidScope, "requested scope exceeds the client registration")
	default:
		h.errorRedirect(c, req, errServerError, "authorization request failed")
	}
}

func (h *AuthorizeHandler) errorRedirect(c *gin.Context, req *services.AuthorizeRequest, code, description string) {
	params := url.Values{
		"error":             {code},
		"error_description": {description},
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	c.Redirect(http.StatusFound, redirectWithParams(req.RedirectURI, params))
}
