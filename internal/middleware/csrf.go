package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/markgate/markgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	csrfTokenKey    = "csrf_token"
	csrfFormField   = "csrf_token"
	csrfHeaderField = "X-CSRF-Token"
)

// CSRFMiddleware binds a random token to the browser session and requires
// it back on POST, from the csrf_token form field or the X-CSRF-Token
// header. GET requests only ensure the token exists so the consent form
// can echo it.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		token, _ := session.Get(csrfTokenKey).(string)
		if token == "" {
			generated, err := util.RandomToken(32)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":             "server_error",
					"error_description": "failed to generate CSRF token",
				})
				return
			}
			token = generated
			session.Set(csrfTokenKey, token)
			if err := session.Save(); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":             "server_error",
					"error_description": "failed to save session",
				})
				return
			}
		}

		// Make the token available to handlers rendering forms
		c.Set(csrfTokenKey, token)

		if c.Request.Method == http.MethodPost {
			submitted := c.PostForm(csrfFormField)
			if submitted == "" {
				submitted = c.GetHeader(csrfHeaderField)
			}
			if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":             "invalid_request",
					"error_description": "CSRF token missing or invalid",
				})
				return
			}
		}

		c.Next()
	}
}

// GetCSRFToken returns the session CSRF token placed by CSRFMiddleware
func GetCSRFToken(c *gin.Context) string {
	token, _ := c.Get(csrfTokenKey)
	s, _ := token.(string)
	return s
}
