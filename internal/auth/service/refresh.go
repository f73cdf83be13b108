package service

import (
	"context"
	"errors"
	"time"

	"github.com/moimlab/moim/internal/auth/domain"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/pkg/cryptox"
	"github.com/moimlab/moim/pkg/idx"
	"github.com/moimlab/moim/pkg/slogx"
)

// DefaultMaxTokensPerAccount caps how many valid refresh tokens an account
// may hold at once.
const DefaultMaxTokensPerAccount = 5

// RefreshTokenService owns refresh-token bookkeeping: creation with
// per-account eviction, state validation with fail-closed cleanup, and the
// expiry sweep. Only SHA-256 fingerprints of the opaque values are stored.
type RefreshTokenService struct {
	Store         store.Store
	TTL           time.Duration
	MaxPerAccount int
}

func (s *RefreshTokenService) maxPerAccount() int {
	if s.MaxPerAccount <= 0 {
		return DefaultMaxTokensPerAccount
	}
	return s.MaxPerAccount
}

// Create mints a new refresh token for the account and returns the stored
// record together with the opaque value handed to the client.
//
// Before inserting, the oldest valid records beyond max-1 are evicted so the
// newcomer fits under the cap. Eviction and insert are not atomic with
// respect to concurrent logins; the cap is soft and self-corrects on the
// next create or sweep.
func (s *RefreshTokenService) Create(
	ctx context.Context,
	accountID string,
	client domain.ClientContext,
) (domain.RefreshToken, string, error) {
	now := time.Now().UTC()

	deleted, err := s.Store.RefreshTokens().DeleteExcessRefreshTokens(
		ctx, accountID, s.maxPerAccount()-1, now)
	if err != nil {
		return domain.RefreshToken{}, "", err
	}
	if deleted > 0 {
		slogx.FromContext(ctx).Info("evicted refresh tokens over per-account cap",
			"account_id", accountID, "deleted", deleted)
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return domain.RefreshToken{}, "", err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		AccountID: accountID,
		TokenHash: cryptox.FingerprintToken(opaque),
		UserAgent: client.UserAgent,
		IP:        client.IP,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return domain.RefreshToken{}, "", err
	}
	return rt, opaque, nil
}

// FindByToken resolves an opaque refresh token to its stored record.
func (s *RefreshTokenService) FindByToken(
	ctx context.Context,
	opaque string,
) (domain.RefreshToken, error) {
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(
		ctx, cryptox.FingerprintToken(opaque))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrRefreshTokenMissing
		}
		return domain.RefreshToken{}, err
	}
	return rt, nil
}

// CheckValid verifies the record can still be redeemed. A record found
// invalid is deleted before the typed error is returned (fail closed): a
// token that failed validation once must never validate later.
func (s *RefreshTokenService) CheckValid(ctx context.Context, rt domain.RefreshToken) error {
	now := time.Now().UTC()

	var reason error
	switch {
	case !now.Before(rt.ExpiresAt):
		reason = ErrRefreshTokenExpired
	case rt.Used:
		reason = ErrRefreshTokenUsed
	case rt.Revoked:
		reason = ErrRefreshTokenRevoked
	default:
		return nil
	}

	if err := s.Store.RefreshTokens().DeleteRefreshToken(ctx, rt.ID); err != nil {
		slogx.FromContext(ctx).Error("failed to delete invalid refresh token",
			"token_id", rt.ID, "err", err)
	}
	return reason
}

// MarkUsed atomically claims the record for redemption. Exactly one of any
// number of concurrent callers succeeds; the rest get ErrRefreshTokenUsed.
func (s *RefreshTokenService) MarkUsed(ctx context.Context, rt domain.RefreshToken) error {
	if err := s.Store.RefreshTokens().MarkRefreshTokenUsed(ctx, rt.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRefreshTokenUsed
		}
		return err
	}
	return nil
}

// Revoke flips the record to revoked. Idempotent.
func (s *RefreshTokenService) Revoke(ctx context.Context, rt domain.RefreshToken) error {
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, rt.ID)
}

// RevokeAllForAccount bulk-revokes every token the account holds.
func (s *RefreshTokenService) RevokeAllForAccount(ctx context.Context, accountID string) error {
	return s.Store.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, accountID)
}

// SweepExpired deletes records whose expiry is older than now minus the
// retention window. Runs from the housekeeping worker, never in the request
// path.
func (s *RefreshTokenService) SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, cutoff)
}

// CountValid counts currently-redeemable tokens for the account.
func (s *RefreshTokenService) CountValid(ctx context.Context, accountID string) (int, error) {
	return s.Store.RefreshTokens().CountValidRefreshTokens(ctx, accountID, time.Now().UTC())
}

// StatsFor summarises the account's session usage against the cap.
func (s *RefreshTokenService) StatsFor(ctx context.Context, accountID string) (domain.SessionStats, error) {
	active, err := s.CountValid(ctx, accountID)
	if err != nil {
		return domain.SessionStats{}, err
	}
	total, err := s.Store.RefreshTokens().CountAccountRefreshTokens(ctx, accountID)
	if err != nil {
		return domain.SessionStats{}, err
	}

	maxTokens := s.maxPerAccount()
	return domain.SessionStats{
		Active:    active,
		Total:     total,
		Max:       maxTokens,
		NearLimit: active >= maxTokens-1,
	}, nil
}
