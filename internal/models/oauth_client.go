package models

import (
	"database/sql/driver"
	"encoding/base32"
	"encoding/json"
	"errors"
	"time"

	"github.com/markgate/markgate/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// Token endpoint authentication methods supported at registration.
const (
	AuthMethodNone       = "none"
	AuthMethodSecretPost = "client_secret_post"
)

// Base32 characters, but lowercased.
const lowerBase32Chars = "abcdefghijklmnopqrstuvwxyz234567"

// base32 encoder that uses lowered characters without padding.
var base32Lower = base32.NewEncoding(lowerBase32Chars).WithPadding(base32.NoPadding)

// OAuthClient is a dynamically registered downstream client.
type OAuthClient struct {
	ID                      int64       `gorm:"primaryKey;autoIncrement"`
	ClientID                string      `gorm:"uniqueIndex;not null"`
	ClientSecret            string      // bcrypt hashed secret, empty for public clients
	ClientName              string      `gorm:"not null"`
	RedirectURIs            StringArray `gorm:"type:json"`
	GrantTypes              string      `gorm:"not null;default:'authorization_code refresh_token'"`
	TokenEndpointAuthMethod string      `gorm:"not null;default:'none'"`
	Scopes                  string      `gorm:"not null"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsPublic reports whether the client authenticates at the token endpoint.
func (c *OAuthClient) IsPublic() bool {
	return c.TokenEndpointAuthMethod == AuthMethodNone
}

// HasRedirectURI checks an exact match against the registered URIs.
// No prefix or pattern matching.
func (c *OAuthClient) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// GenerateClientSecret generates a fresh client secret, stores its bcrypt
// hash on the model and returns the plaintext. The plaintext is never
// persisted and cannot be recovered later.
func (c *OAuthClient) GenerateClientSecret() (string, error) {
	rBytes, err := util.CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	// Add a prefix to the base32, this is in order to make it easier
	// for code scanners to grab sensitive tokens.
	clientSecret := "mkg_" + base32Lower.EncodeToString(rBytes)

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	c.ClientSecret = string(hashedSecret)
	return clientSecret, nil
}

// ValidateClientSecret validates the given secret against the stored hash
func (c *OAuthClient) ValidateClientSecret(secret []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.ClientSecret), secret) == nil
}

// StringArray is a custom type for []string that can be stored as JSON in database
type StringArray []string

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("failed to unmarshal JSON value")
	}
}

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// TableName overrides the table name used by OAuthClient to `oauth_clients`
func (OAuthClient) TableName() string {
	return "oauth_clients"
}
