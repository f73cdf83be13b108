package sqlite

import (
	"context"
	"time"

	"github.com/moimlab/moim/internal/auth/domain"
)

type providerLinksRepo struct {
	db dbtx
}

func (r *providerLinksRepo) GetProviderLink(
	ctx context.Context,
	provider domain.Provider,
	subjectID string,
) (domain.ProviderLink, error) {
	var l domain.ProviderLink
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, provider, subject_id, created_at
		FROM provider_links WHERE provider = ? AND subject_id = ?`,
		provider.String(), subjectID,
	).Scan(&l.ID, &l.AccountID, &l.Provider, &l.SubjectID, &l.CreatedAt)
	if err != nil {
		return domain.ProviderLink{}, mapNotFound(err)
	}
	return l, nil
}

func (r *providerLinksRepo) CreateProviderLink(ctx context.Context, l domain.ProviderLink) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO provider_links (id, account_id, provider, subject_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.AccountID, l.Provider.String(), l.SubjectID, l.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *providerLinksRepo) ListAccountProviderLinks(
	ctx context.Context,
	accountID string,
) ([]domain.ProviderLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, provider, subject_id, created_at
		FROM provider_links WHERE account_id = ? ORDER BY provider`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.ProviderLink
	for rows.Next() {
		var l domain.ProviderLink
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Provider, &l.SubjectID, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
