package models

import "time"

// UserAuthorization remembers a consent decision per user and client so a
// returning user skips the consent form.
type UserAuthorization struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"not null;uniqueIndex:idx_user_client"`
	ClientID  string `gorm:"not null;uniqueIndex:idx_user_client"`
	Scopes    string `gorm:"not null"`
	GrantedAt time.Time
}

// TableName overrides the table name used by UserAuthorization to `user_authorizations`
func (UserAuthorization) TableName() string {
	return "user_authorizations"
}
