package store

import (
	"context"
	"errors"
	"time"

	"github.com/moimlab/moim/internal/auth/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists surfaces a uniqueness-constraint violation. The
	// identity resolver's create-or-recover path depends on being able to
	// distinguish this from other failures.
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	ProviderLinks() ProviderLinks
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. An error from fn rolls the
	// transaction back; nil commits it.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks up by case-normalized email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByUsername is used during password login.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account (id is a ULID minted by the app).
	// Returns ErrAlreadyExists when the email or username is already taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateAccountProfile refreshes display name and avatar, bumping
	// updated_at. Run on every provider login.
	UpdateAccountProfile(ctx context.Context, accountID, displayName, avatarURL string) error

	// UsernameExists reports whether a username is taken.
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type ProviderLinks interface {
	// GetProviderLink looks up the link for a provider-scoped subject id.
	GetProviderLink(ctx context.Context, provider domain.Provider, subjectID string) (domain.ProviderLink, error)

	// CreateProviderLink inserts a link. Returns ErrAlreadyExists when the
	// (provider, subject id) pair is already linked to some account.
	CreateProviderLink(ctx context.Context, l domain.ProviderLink) error

	// ListAccountProviderLinks returns all links held by an account.
	ListAccountProviderLinks(ctx context.Context, accountID string) ([]domain.ProviderLink, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// MarkRefreshTokenUsed atomically claims the record for redemption:
	// it flips used=1 only if the record is currently unused and unrevoked,
	// returning ErrNotFound otherwise. This conditional update is what
	// makes refresh one-time under concurrent redemption.
	MarkRefreshTokenUsed(ctx context.Context, id string) error

	// RevokeRefreshToken flips revoked=1. Idempotent.
	RevokeRefreshToken(ctx context.Context, id string) error

	// RevokeAllAccountRefreshTokens bulk-revokes for full logout.
	RevokeAllAccountRefreshTokens(ctx context.Context, accountID string) error

	// DeleteRefreshToken removes a record outright (fail-closed cleanup of
	// records found invalid during validation).
	DeleteRefreshToken(ctx context.Context, id string) error

	// DeleteExpiredRefreshTokens deletes records whose expiry is before the
	// given cutoff. Housekeeping; returns the number deleted.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)

	// DeleteExcessRefreshTokens deletes the oldest currently-valid records
	// of an account beyond the newest keep, returning the number deleted.
	DeleteExcessRefreshTokens(ctx context.Context, accountID string, keep int, now time.Time) (int64, error)

	// CountValidRefreshTokens counts unused, unrevoked, unexpired records.
	CountValidRefreshTokens(ctx context.Context, accountID string, now time.Time) (int, error)

	// CountAccountRefreshTokens counts all records held by an account,
	// whatever their state.
	CountAccountRefreshTokens(ctx context.Context, accountID string) (int, error)
}
