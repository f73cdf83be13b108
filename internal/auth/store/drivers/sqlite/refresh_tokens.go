package sqlite

import (
	"context"
	"time"

	"github.com/moimlab/moim/internal/auth/domain"
	"github.com/moimlab/moim/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			id, account_id, token_hash, user_agent, ip,
			used, revoked, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.TokenHash, t.UserAgent, t.IP,
		t.Used, t.Revoked, t.ExpiresAt, t.CreatedAt, t.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, token_hash, user_agent, ip,
		       used, revoked, expires_at, created_at, updated_at
		FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(
		&t.ID, &t.AccountID, &t.TokenHash, &t.UserAgent, &t.IP,
		&t.Used, &t.Revoked, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

// MarkRefreshTokenUsed claims the record for redemption. The conditional
// WHERE clause makes concurrent redemptions race on a single-row update,
// so at most one caller ever sees a nil error.
func (r *refreshTokensRepo) MarkRefreshTokenUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET used = 1, updated_at = ?
		WHERE id = ? AND used = 0 AND revoked = 0`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ?
		WHERE id = ? AND revoked = 0`,
		time.Now().UTC(), id,
	)
	return err
}

func (r *refreshTokensRepo) RevokeAllAccountRefreshTokens(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ?
		WHERE account_id = ? AND revoked = 0`,
		time.Now().UTC(), accountID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = ?`, id)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExcessRefreshTokens removes the oldest currently-valid records of an
// account beyond the newest keep. Runs before inserting a new record so the
// newcomer fits under the per-account cap.
func (r *refreshTokensRepo) DeleteExcessRefreshTokens(
	ctx context.Context,
	accountID string,
	keep int,
	now time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE account_id = ? AND used = 0 AND revoked = 0 AND expires_at > ?
		  AND id NOT IN (
			SELECT id FROM refresh_tokens
			WHERE account_id = ? AND used = 0 AND revoked = 0 AND expires_at > ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		  )`,
		accountID, now, accountID, now, keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) CountValidRefreshTokens(
	ctx context.Context,
	accountID string,
	now time.Time,
) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM refresh_tokens
		WHERE account_id = ? AND used = 0 AND revoked = 0 AND expires_at > ?`,
		accountID, now,
	).Scan(&n)
	return n, err
}

func (r *refreshTokensRepo) CountAccountRefreshTokens(
	ctx context.Context,
	accountID string,
) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM refresh_tokens WHERE account_id = ?`, accountID,
	).Scan(&n)
	return n, err
}
