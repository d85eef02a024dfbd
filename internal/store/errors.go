package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrClientIDConflict is returned when a client_id already exists
	ErrClientIDConflict = errors.New("client_id already exists")

	// ErrCodeConsumed is returned by ConsumeAuthorizationCode when the code
	// row was already deleted by a concurrent redemption (0 rows deleted).
	ErrCodeConsumed = errors.New("authorization code already consumed")
)
