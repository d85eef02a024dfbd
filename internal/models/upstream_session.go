package models

import "time"

// UpstreamSession holds the upstream provider tokens for one authenticated
// user. Token values are AES-GCM encrypted before they reach this struct;
// plaintext upstream tokens never touch the database.
//
// Saving a session replaces it wholesale, so access token, refresh token
// and expiry always describe the same upstream grant.
type UpstreamSession struct {
	SessionID          string `gorm:"primaryKey;size:64"`
	UserID             string `gorm:"not null;index"`
	Username           string
	AccessTokenCipher  string `gorm:"not null;type:text"`
	RefreshTokenCipher string `gorm:"type:text"`
	UpstreamExpiresAt  time.Time
	CreatedAt          time.Time
	LastUsedAt         time.Time
}

// TableName overrides the table name used by UpstreamSession to `upstream_sessions`
func (UpstreamSession) TableName() string {
	return "upstream_sessions"
}
