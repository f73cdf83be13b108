package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef" // exactly 32 bytes

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	codec, padded := NewCodec(testKey, "moim-test", 15*time.Minute)
	require.False(t, padded)

	raw, err := codec.Issue("account-123")
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "account-123", claims.Subject)
	require.Equal(t, "moim-test", claims.Issuer)
	require.NotEmpty(t, claims.ID)
}

func TestExpiryBoundary(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testKey, "moim-test", 10*time.Minute)
	issued := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)

	raw, err := codec.IssueAt("account-123", issued)
	require.NoError(t, err)

	t.Run("valid strictly before exp", func(t *testing.T) {
		_, err := codec.VerifyAt(raw, issued.Add(10*time.Minute-time.Second))
		require.NoError(t, err)
	})

	t.Run("expired exactly at exp", func(t *testing.T) {
		_, err := codec.VerifyAt(raw, issued.Add(10*time.Minute))
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("expired after exp", func(t *testing.T) {
		_, err := codec.VerifyAt(raw, issued.Add(time.Hour))
		require.ErrorIs(t, err, ErrExpired)
	})
}

func TestZeroTTLIsNeverValid(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testKey, "moim-test", 0)
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)

	raw, err := codec.IssueAt("account-123", now)
	require.NoError(t, err)

	_, err = codec.VerifyAt(raw, now)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testKey, "moim-test", time.Minute)

	for _, bad := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(bad)
		require.ErrorIs(t, err, ErrMalformed, "input %q", bad)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	ours, _ := NewCodec(testKey, "moim-test", time.Minute)
	theirs, _ := NewCodec("ffffffffffffffffffffffffffffffff", "moim-test", time.Minute)

	raw, err := theirs.Issue("account-123")
	require.NoError(t, err)

	_, err = ours.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsUnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testKey, "moim-test", time.Minute)

	// Token signed with "none" must be rejected before signature checks.
	claims := NewAccessClaims("account-123", "moim-test", time.Minute, time.Now().UTC())
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrAlgMismatch)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	t.Parallel()

	codec, _ := NewCodec(testKey, "moim-test", time.Minute)

	raw, err := codec.Issue("")
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidClaim)
}

func TestShortKeyIsPaddedDeterministically(t *testing.T) {
	t.Parallel()

	a, padded := NewCodec("short-key", "moim-test", time.Minute)
	require.True(t, padded)
	b, _ := NewCodec("short-key", "moim-test", time.Minute)

	raw, err := a.Issue("account-123")
	require.NoError(t, err)

	// Two codecs built from the same short key verify each other's tokens.
	claims, err := b.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "account-123", claims.Subject)

	key, _ := NormalizeKey("short-key")
	require.Len(t, key, MinKeyBytes)
}
