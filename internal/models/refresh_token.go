package models

import "time"

// RefreshToken is an opaque long-lived credential stored by hash.
// Tokens are fixed for their lifetime: a refresh updates LastUsedAt but
// never rotates the value.
type RefreshToken struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	TokenHash  string `gorm:"uniqueIndex;not null"`
	ClientID   string `gorm:"not null;index"`
	UserID     string `gorm:"not null"`
	Scopes     string `gorm:"not null"`
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// IsExpired checks if the refresh token has expired
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// TableName overrides the table name used by RefreshToken to `refresh_tokens`
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
