package upstream

import "errors"

var (
	// ErrInvalidState is returned when a callback presents a state value
	// that is unknown, expired, or already consumed
	ErrInvalidState = errors.New("unknown or expired login state")

	// ErrExchangeFailed wraps a failed upstream code exchange
	ErrExchangeFailed = errors.New("upstream code exchange failed")

	// ErrIdentityFetchFailed wraps a failed upstream identity lookup
	ErrIdentityFetchFailed = errors.New("failed to fetch upstream identity")

	// ErrSessionNotFound is returned when no upstream session exists
	ErrSessionNotFound = errors.New("upstream session not found")

	// ErrRefreshFailed wraps a failed upstream token refresh
	ErrRefreshFailed = errors.New("upstream token refresh failed")
)
