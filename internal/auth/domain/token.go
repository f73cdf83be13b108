package domain

import "time"

// TokenPair is what a successful login or refresh returns: the short-lived
// signed access token and the opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access-token lifetime, seconds
}

// ClientContext carries diagnostic request metadata recorded alongside a
// refresh token. Not security-enforced.
type ClientContext struct {
	UserAgent string
	IP        string
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID        string
	AccountID string
	TokenHash string

	UserAgent string
	IP        string

	// Used flips on first redemption; refresh tokens are one-time-use.
	Used bool
	// Revoked flips on logout or rotation-out.
	Revoked bool

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidAt reports whether the record can still be redeemed at the given
// instant. The expiry boundary is inclusive: at now == ExpiresAt the token
// is already expired.
func (t RefreshToken) ValidAt(now time.Time) bool {
	return !t.Used && !t.Revoked && now.Before(t.ExpiresAt)
}

// SessionStats summarises an account's refresh-token usage against the
// per-account cap.
type SessionStats struct {
	Active    int  `json:"active"`
	Total     int  `json:"total"`
	Max       int  `json:"max"`
	NearLimit bool `json:"near_limit"`
}
