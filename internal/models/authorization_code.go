package models

import "time"

// AuthorizationCode is a single-use artifact binding a downstream client,
// a user, a redirect URI and a PKCE challenge. Only the SHA-256 hash of
// the code value is stored; redemption deletes the row.
type AuthorizationCode struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	CodeHash            string `gorm:"uniqueIndex;not null"`
	ClientID            string `gorm:"not null;index"`
	UserID              string `gorm:"not null"`
	RedirectURI         string `gorm:"not null"`
	Scopes              string `gorm:"not null"`
	CodeChallenge       string `gorm:"not null"`
	CodeChallengeMethod string `gorm:"not null;default:'S256'"`
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// IsExpired checks if the authorization code has expired
func (c *AuthorizationCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// TableName overrides the table name used by AuthorizationCode to `authorization_codes`
func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}
