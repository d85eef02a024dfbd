package handlers

import (
	"net/url"

	"github.com/gin-gonic/gin"
)

// OAuth error codes used at the HTTP boundary (RFC 6749 §4.1.2.1, §5.2,
// RFC 7591 §3.2.2)
const (
	errInvalidRequest         = "invalid_request"
	errInvalidClient          = "invalid_client"
	errInvalidGrant           = "invalid_grant"
	errUnauthorizedClient     = "unauthorized_client"
	errUnsupportedGrantType   = "unsupported_grant_type"
	errUnsupportedResponseTyp = "unsupported_response_type"
	errInvalidScope           = "invalid_scope"
	errAccessDenied           = "access_denied"
	errServerError            = "server_error"
	errInvalidClientMetadata  = "invalid_client_metadata"
	errInvalidRedirectURI     = "invalid_redirect_uri"
)

// oauthError writes the standard OAuth error JSON body
func oauthError(c *gin.Context, status int, code, description string) {
	c.JSON(status, gin.H{
		"error":             code,
		"error_description": description,
	})
}

// redirectWithParams appends query parameters to a redirect URI, keeping
// any query it already carries.
func redirectWithParams(baseURI string, params url.Values) string {
	parsed, err := url.Parse(baseURI)
	if err != nil {
		return baseURI
	}
	q := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// safeReturnTo keeps post-login redirects on this host: only rooted paths
// pass, anything absolute or protocol-relative falls back to "/".
func safeReturnTo(target string) string {
	if target == "" || target[0] != '/' {
		return "/"
	}
	if len(target) > 1 && target[1] == '/' {
		return "/"
	}
	return target
}
