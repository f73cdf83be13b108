package service

import (
	"context"
	"errors"

	"github.com/moimlab/moim/internal/auth/domain"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/internal/metrics"
	"github.com/moimlab/moim/pkg/cryptox"
	"github.com/moimlab/moim/pkg/jwtx"
	"github.com/moimlab/moim/pkg/slogx"
)

// SessionService composes the token codec and the refresh-token service
// into the login, refresh and logout flows.
type SessionService struct {
	Codec   *jwtx.Codec
	Tokens  *RefreshTokenService
	Store   store.Store
	Metrics *metrics.Collector
}

// Login issues a fresh access/refresh pair for the account. There is no
// existing-session check: concurrent sessions are allowed up to the
// per-account cap, which Create enforces by evicting the oldest.
func (s *SessionService) Login(
	ctx context.Context,
	accountID string,
	client domain.ClientContext,
) (domain.TokenPair, error) {
	access, err := s.Codec.Issue(accountID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	_, opaque, err := s.Tokens.Create(ctx, accountID, client)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.TTL().Seconds()),
	}, nil
}

// LoginWithPassword checks local credentials and issues a token pair.
func (s *SessionService) LoginWithPassword(
	ctx context.Context,
	email, password string,
	client domain.ClientContext,
) (domain.Account, domain.TokenPair, error) {
	account, err := s.Store.Accounts().GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.Account{}, domain.TokenPair{}, err
	}

	if account.PasswordHash == "" ||
		cryptox.VerifyPassword(password, account.PasswordHash) != nil {
		slogx.FromContext(ctx).Info("password login failed", "account_id", account.ID)
		return domain.Account{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.Login(ctx, account.ID, client)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, err
	}

	s.Metrics.RecordLogin("password")
	return account, pair, nil
}

// Refresh rotates a presented refresh token: the old token is invalidated
// before the new pair exists, so a replay of the old value can never
// succeed even if issuing the replacement fails.
func (s *SessionService) Refresh(
	ctx context.Context,
	presented string,
	client domain.ClientContext,
) (domain.TokenPair, error) {
	pair, err := s.refresh(ctx, presented, client)
	if err != nil {
		s.Metrics.RecordRefreshFailure(refreshFailureReason(err))
		return domain.TokenPair{}, err
	}
	s.Metrics.RecordRefresh()
	return pair, nil
}

func (s *SessionService) refresh(
	ctx context.Context,
	presented string,
	client domain.ClientContext,
) (domain.TokenPair, error) {
	if presented == "" {
		return domain.TokenPair{}, ErrRefreshTokenMissing
	}

	rt, err := s.Tokens.FindByToken(ctx, presented)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// Invalid records are deleted here, so a token that fails validation
	// once is gone for good.
	if err := s.Tokens.CheckValid(ctx, rt); err != nil {
		return domain.TokenPair{}, err
	}

	// Claim the token. Under concurrent redemption of the same value,
	// exactly one caller passes this point.
	if err := s.Tokens.MarkUsed(ctx, rt); err != nil {
		return domain.TokenPair{}, err
	}

	// Rotation: the presented token is also revoked so it reads as dead in
	// session listings whatever happens below.
	if err := s.Tokens.Revoke(ctx, rt); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke rotated refresh token",
			"token_id", rt.ID, "err", err)
	}

	return s.Login(ctx, rt.AccountID, client)
}

// Logout revokes a single session when a refresh token is presented, or
// every session of the account when none is.
func (s *SessionService) Logout(ctx context.Context, accountID, presented string) error {
	if presented == "" {
		return s.LogoutEverywhere(ctx, accountID)
	}

	rt, err := s.Tokens.FindByToken(ctx, presented)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenMissing) {
			// Nothing to revoke; logout still succeeds.
			return nil
		}
		return err
	}

	// Never let one account revoke another's session.
	if rt.AccountID != accountID {
		slogx.FromContext(ctx).Warn("logout presented a foreign refresh token",
			"account_id", accountID, "token_account_id", rt.AccountID)
		return nil
	}

	if err := s.Tokens.Revoke(ctx, rt); err != nil {
		return err
	}
	s.Metrics.RecordRevocation(1)
	return nil
}

// LogoutEverywhere revokes all of the account's refresh tokens.
func (s *SessionService) LogoutEverywhere(ctx context.Context, accountID string) error {
	active, err := s.Tokens.CountValid(ctx, accountID)
	if err != nil {
		active = 0
	}
	if err := s.Tokens.RevokeAllForAccount(ctx, accountID); err != nil {
		return err
	}
	s.Metrics.RecordRevocation(active)
	return nil
}

// Stats reports the account's session usage.
func (s *SessionService) Stats(ctx context.Context, accountID string) (domain.SessionStats, error) {
	return s.Tokens.StatsFor(ctx, accountID)
}

func refreshFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrRefreshTokenMissing):
		return "missing"
	case errors.Is(err, ErrRefreshTokenExpired):
		return "expired"
	case errors.Is(err, ErrRefreshTokenUsed):
		return "used"
	case errors.Is(err, ErrRefreshTokenRevoked):
		return "revoked"
	default:
		return "internal"
	}
}
