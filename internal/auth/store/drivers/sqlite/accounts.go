package sqlite

import (
	"context"
	"time"

	"github.com/moimlab/moim/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, username, display_name, avatar_url,
	email_verified, password_hash, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, username, display_name, avatar_url,
			email_verified, password_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Username, a.DisplayName, a.AvatarURL,
		a.EmailVerified, a.PasswordHash, a.CreatedAt, a.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdateAccountProfile(ctx context.Context, accountID, displayName, avatarURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?`,
		displayName, avatarURL, time.Now().UTC(), accountID,
	)
	return err
}

func (r *accountsRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM accounts WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.Username, &a.DisplayName, &a.AvatarURL,
		&a.EmailVerified, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}
