package token

import "errors"

var (
	// ErrSigningKeyMissing is returned at first use when no signing key is
	// configured. Deliberately not a startup error: the rest of the server
	// (registration, discovery, upstream login) works without it.
	ErrSigningKeyMissing = errors.New("token signing key is not configured")

	// ErrTokenGeneration indicates the signing step itself failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrInvalidToken is the single verification failure. Expired, tampered,
	// wrong issuer and wrong audience all map here so callers cannot probe
	// which check rejected a token.
	ErrInvalidToken = errors.New("invalid token")
)
