package services

import "errors"

// Registration / client errors
var (
	ErrClientNotFound        = errors.New("client not found")
	ErrClientAuthFailed      = errors.New("client authentication failed")
	ErrInvalidClientMetadata = errors.New("invalid client metadata")
	ErrInvalidRedirectURI    = errors.New("invalid redirect URI")
)

// Authorization request errors
var (
	ErrInvalidResponseType        = errors.New("unsupported response type")
	ErrInvalidScope               = errors.New("requested scope exceeds granted scope")
	ErrStateRequired              = errors.New("state parameter is required")
	ErrPKCERequired               = errors.New("PKCE code challenge is required")
	ErrUnsupportedChallengeMethod = errors.New("unsupported code challenge method")
)

// Code redemption errors. Ordered checks surface the first failure;
// every failed attempt burns the code.
var (
	ErrAuthCodeNotFound         = errors.New("authorization code not found or already used")
	ErrAuthCodeClientMismatch   = errors.New("authorization code was issued to a different client")
	ErrAuthCodeRedirectMismatch = errors.New("redirect URI does not match the authorization request")
	ErrAuthCodeExpired          = errors.New("authorization code has expired")
	ErrInvalidCodeVerifier      = errors.New("PKCE code verifier does not match the challenge")
)

// Refresh grant errors
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token has expired")
)
