package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(CSRFMiddleware())
	r.GET("/form", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	r.POST("/form", func(c *gin.Context) {
		c.String(http.StatusOK, "accepted")
	})
	return r
}

// fetchToken does the GET that seeds the session and returns the token
// together with the session cookies to replay on the POST.
func fetchToken(t *testing.T, r *gin.Engine) (string, []*http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Body.String())
	return w.Body.String(), w.Result().Cookies()
}

func postForm(r *gin.Engine, form url.Values, cookies []*http.Cookie, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if header != "" {
		req.Header.Set("X-CSRF-Token", header)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCSRFMiddleware_ValidFormToken(t *testing.T) {
	r := csrfTestRouter()
	token, cookies := fetchToken(t, r)

	w := postForm(r, url.Values{"csrf_token": {token}}, cookies, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFMiddleware_ValidHeaderToken(t *testing.T) {
	r := csrfTestRouter()
	token, cookies := fetchToken(t, r)

	w := postForm(r, url.Values{}, cookies, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFMiddleware_MissingToken(t *testing.T) {
	r := csrfTestRouter()
	_, cookies := fetchToken(t, r)

	w := postForm(r, url.Values{}, cookies, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFMiddleware_WrongToken(t *testing.T) {
	r := csrfTestRouter()
	_, cookies := fetchToken(t, r)

	w := postForm(r, url.Values{"csrf_token": {"forged-token"}}, cookies, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFMiddleware_TokenStableAcrossRequests(t *testing.T) {
	r := csrfTestRouter()
	token, cookies := fetchToken(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, token, w.Body.String())
}
