package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/markgate/markgate/internal/auth"
	"github.com/markgate/markgate/internal/cache"
	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/middleware"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/services"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/token"
	"github.com/markgate/markgate/internal/upstream"
	"github.com/markgate/markgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeUpstream is a minimal upstream provider for handler tests: a token
// endpoint that accepts anything and a matching identity endpoint.
func newFakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "upstream-access-token",
			"token_type":    "bearer",
			"refresh_token": "upstream-refresh-token",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       4711,
			"username": "alice",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// testApp is a fully wired router plus direct access to the layers the
// tests assert against.
type testApp struct {
	router *gin.Engine
	store  *store.Store
	config *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := newFakeUpstream(t)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	s, err := store.New("sqlite", dsn)
	require.NoError(t, err)

	cfg := &config.Config{
		BaseURL:                "http://localhost:8080",
		TokenAudience:          "http://localhost:8080",
		JWTSecret:              "test-jwt-secret",
		JWTExpiration:          time.Hour,
		SessionSecret:          "test-session-secret",
		SessionMaxAge:          3600,
		AuthCodeExpiration:     5 * time.Minute,
		FlowStateExpiration:    5 * time.Minute,
		RefreshTokenExpiration: 720 * time.Hour,
		UpstreamClientID:       "upstream-client",
		UpstreamClientSecret:   "upstream-secret",
		UpstreamAuthURL:        fake.URL + "/oauth/authorize",
		UpstreamTokenURL:       fake.URL + "/oauth/token",
		UpstreamIdentityURL:    fake.URL + "/api/user",
		UpstreamRedirectURL:    "http://localhost:8080/upstream/callback",
		UpstreamScopes:         []string{"bookmarks:read", "bookmarks:write"},
		UpstreamRefreshWindow:  time.Hour,
	}

	cipher, err := util.NewTokenCipher("test-encryption-secret")
	require.NoError(t, err)

	m := metrics.NewNoopMetrics()
	clients := services.NewClientService(s, cfg, m)
	authz := services.NewAuthorizationService(s, cfg, m)
	tokens := services.NewTokenService(s, cfg, token.NewProvider(cfg), m)
	provider := upstream.NewProvider(cfg, fake.Client())
	bridge := upstream.NewBridge(provider, s, cache.NewMemoryCache[models.FlowState](), cipher, cfg, m)
	resolver := auth.NewResolver(tokens, bridge, s)

	r := gin.New()
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("markgate_session", sessionStore))

	register := NewRegisterHandler(clients)
	authorize := NewAuthorizeHandler(authz, bridge, s)
	tokenEndpoint := NewTokenHandler(clients, authz, tokens)
	metadata := NewMetadataHandler(cfg)
	upstreamLogin := NewUpstreamHandler(bridge)
	userinfo := NewUserInfoHandler(resolver)

	r.POST("/register", register.Register)
	r.GET("/authorize", middleware.CSRFMiddleware(), authorize.Authorize)
	r.POST("/authorize", middleware.CSRFMiddleware(), authorize.Decide)
	r.POST("/token", tokenEndpoint.Token)
	r.GET("/userinfo", userinfo.UserInfo)
	r.GET("/.well-known/oauth-authorization-server", metadata.AuthorizationServer)
	r.GET("/.well-known/oauth-protected-resource", metadata.ProtectedResource)
	r.GET("/upstream/login", upstreamLogin.Login)
	r.GET("/upstream/callback", upstreamLogin.Callback)
	r.GET("/logout", upstreamLogin.Logout)

	return &testApp{router: r, store: s, config: cfg}
}

// serve runs the router on a real listener and returns a client with a
// cookie jar that does not follow redirects, so tests can inspect every
// Location header along the flow.
func (a *testApp) serve(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	server := httptest.NewServer(a.router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return server, client
}

func (a *testApp) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	a.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&decoded))
	return decoded
}

// registerClient registers a public client and returns its client_id
func (a *testApp) registerClient(t *testing.T, redirectURI string) string {
	t.Helper()
	w := a.postJSON(t, "/register", map[string]any{
		"client_name":   "Test Client",
		"redirect_uris": []string{redirectURI},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeJSON(t, w.Body)["client_id"].(string)
}

// genPKCE returns a verifier and its S256 challenge
func genPKCE(t *testing.T) (string, string) {
	t.Helper()
	verifier, err := util.RandomToken(48)
	require.NoError(t, err)
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:])
}
