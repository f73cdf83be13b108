package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the minimum HMAC key length (256 bits for HS256).
const MinKeyBytes = 32

// Codec signs and verifies HS256 access tokens. Issue/Verify are pure
// functions of the key, the configured TTL, and the clock; a Codec is safe
// for concurrent use.
type Codec struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewCodec builds a Codec from a signing key string. Keys shorter than
// MinKeyBytes are deterministically zero-padded instead of rejected so that
// legacy deployments keep working; the returned padded flag lets the caller
// log a loud warning, because a padded key carries less entropy than its
// length suggests.
func NewCodec(signingKey, issuer string, ttl time.Duration) (*Codec, bool) {
	key, padded := NormalizeKey(signingKey)
	return &Codec{key: key, issuer: issuer, ttl: ttl}, padded
}

// NormalizeKey returns the raw HMAC key for a configured signing key,
// zero-padding it up to MinKeyBytes when too short.
func NormalizeKey(signingKey string) ([]byte, bool) {
	key := []byte(signingKey)
	if len(key) >= MinKeyBytes {
		return key, false
	}

	padded := make([]byte, MinKeyBytes)
	copy(padded, key)
	return padded, true
}

// TTL reports the configured access-token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue produces a compact signed token embedding subject, iat and exp.
func (c *Codec) Issue(subject string) (string, error) {
	return c.IssueAt(subject, time.Now().UTC())
}

// IssueAt is Issue with an explicit clock, for tests and replay tooling.
func (c *Codec) IssueAt(subject string, now time.Time) (string, error) {
	claims := NewAccessClaims(subject, c.issuer, c.ttl, now)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.key)
}

// Verify checks the signature and expiry of a token and returns its claims.
// Failures map onto the package sentinels: ErrMalformed, ErrAlgMismatch,
// ErrInvalidSig, ErrExpired, ErrInvalidClaim.
func (c *Codec) Verify(raw string) (Claims, error) {
	return c.VerifyAt(raw, time.Now().UTC())
}

// VerifyAt is Verify with an explicit clock.
func (c *Codec) VerifyAt(raw string, now time.Time) (Claims, error) {
	var claims Claims

	// Claims validation is done by hand below so that expiry uses our
	// boundary semantics (now == exp is already expired).
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrAlgMismatch
		}
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlgMismatch):
			return Claims{}, ErrAlgMismatch
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, ErrMalformed
		}
	}

	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}
	if err := claims.ValidateExpiry(now); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
