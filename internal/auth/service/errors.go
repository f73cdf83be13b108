package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// Refresh flow failures. All of them force re-authentication; none are
	// retryable by the client.
	ErrRefreshTokenMissing = errors.New("refresh_token_missing")
	ErrRefreshTokenExpired = errors.New("refresh_token_expired")
	ErrRefreshTokenUsed    = errors.New("refresh_token_used")
	ErrRefreshTokenRevoked = errors.New("refresh_token_revoked")

	// ErrInvalidIdentity reports a malformed or incomplete provider
	// assertion. Surfaced as a user-facing login failure.
	ErrInvalidIdentity = errors.New("invalid_identity_assertion")

	// ErrIdentityPersistence is fatal: the create-or-recover path exhausted
	// its fallback lookup.
	ErrIdentityPersistence = errors.New("identity_persistence_failed")
)
