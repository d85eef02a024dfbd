package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_PublicClient(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON(t, "/register", map[string]any{
		"client_name":   "My Bookmark App",
		"redirect_uris": []string{"https://app.example.com/callback"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeJSON(t, w.Body)
	assert.NotEmpty(t, body["client_id"])
	assert.Equal(t, "My Bookmark App", body["client_name"])
	assert.Equal(t, "none", body["token_endpoint_auth_method"])
	assert.Equal(t, "bookmarks:read bookmarks:write", body["scope"])
	assert.NotContains(t, body, "client_secret")
}

func TestRegister_ConfidentialClient(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON(t, "/register", map[string]any{
		"client_name":                "Server App",
		"redirect_uris":              []string{"https://server.example.com/cb"},
		"token_endpoint_auth_method": "client_secret_post",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeJSON(t, w.Body)
	secret, ok := body["client_secret"].(string)
	require.True(t, ok, "confidential client must receive a secret")
	assert.True(t, strings.HasPrefix(secret, "mkg_"))
	assert.Equal(t, float64(0), body["client_secret_expires_at"])

	// The stored record holds a hash, never the plaintext
	client, err := app.store.GetClientByClientID(body["client_id"].(string))
	require.NoError(t, err)
	assert.NotEqual(t, secret, client.ClientSecret)
	assert.NotContains(t, client.ClientSecret, secret)
}

func TestRegister_InvalidMetadata(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name      string
		body      map[string]any
		wantError string
	}{
		{
			name:      "missing client name",
			body:      map[string]any{"redirect_uris": []string{"https://a.example.com/cb"}},
			wantError: "invalid_client_metadata",
		},
		{
			name:      "no redirect uris",
			body:      map[string]any{"client_name": "App"},
			wantError: "invalid_client_metadata",
		},
		{
			name: "redirect uri with fragment",
			body: map[string]any{
				"client_name":   "App",
				"redirect_uris": []string{"https://a.example.com/cb#frag"},
			},
			wantError: "invalid_redirect_uri",
		},
		{
			name: "plain http on a public host",
			body: map[string]any{
				"client_name":   "App",
				"redirect_uris": []string{"http://a.example.com/cb"},
			},
			wantError: "invalid_redirect_uri",
		},
		{
			name: "relative redirect uri",
			body: map[string]any{
				"client_name":   "App",
				"redirect_uris": []string{"/cb"},
			},
			wantError: "invalid_redirect_uri",
		},
		{
			name: "unsupported grant type",
			body: map[string]any{
				"client_name":   "App",
				"redirect_uris": []string{"https://a.example.com/cb"},
				"grant_types":   []string{"client_credentials"},
			},
			wantError: "invalid_client_metadata",
		},
		{
			name: "unsupported auth method",
			body: map[string]any{
				"client_name":                "App",
				"redirect_uris":              []string{"https://a.example.com/cb"},
				"token_endpoint_auth_method": "client_secret_basic",
			},
			wantError: "invalid_client_metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.postJSON(t, "/register", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decodeJSON(t, w.Body)["error"])
		})
	}
}

func TestRegister_LoopbackHTTPAllowed(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON(t, "/register", map[string]any{
		"client_name":   "Local CLI",
		"redirect_uris": []string{"http://127.0.0.1:8765/callback", "http://localhost:8765/callback"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}
