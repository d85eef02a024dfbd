package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClientSecret(t *testing.T) {
	client := &OAuthClient{ClientID: "test-client"}

	secret, err := client.GenerateClientSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, "mkg_"))
	assert.NotEqual(t, secret, client.ClientSecret, "stored value must be a hash")
	assert.True(t, client.ValidateClientSecret([]byte(secret)))
	assert.False(t, client.ValidateClientSecret([]byte("wrong-secret")))
}

func TestGenerateClientSecret_Unique(t *testing.T) {
	client := &OAuthClient{ClientID: "test-client"}

	s1, err := client.GenerateClientSecret()
	require.NoError(t, err)
	s2, err := client.GenerateClientSecret()
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	// After regeneration only the newest secret validates
	assert.False(t, client.ValidateClientSecret([]byte(s1)))
	assert.True(t, client.ValidateClientSecret([]byte(s2)))
}

func TestIsPublic(t *testing.T) {
	public := &OAuthClient{TokenEndpointAuthMethod: AuthMethodNone}
	confidential := &OAuthClient{TokenEndpointAuthMethod: AuthMethodSecretPost}

	assert.True(t, public.IsPublic())
	assert.False(t, confidential.IsPublic())
}

func TestHasRedirectURI(t *testing.T) {
	client := &OAuthClient{
		RedirectURIs: StringArray{
			"https://app.example.com/callback",
			"http://localhost:8888/callback",
		},
	}

	assert.True(t, client.HasRedirectURI("https://app.example.com/callback"))
	// Exact string match only
	assert.False(t, client.HasRedirectURI("https://app.example.com/callback/"))
	assert.False(t, client.HasRedirectURI("https://app.example.com"))
	assert.False(t, client.HasRedirectURI("https://evil.example.com/callback"))
}

func TestStringArray_RoundTrip(t *testing.T) {
	original := StringArray{"https://a.example.com/cb", "https://b.example.com/cb"}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned StringArray
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)
}

func TestStringArray_ScanNil(t *testing.T) {
	var s StringArray
	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)
}
