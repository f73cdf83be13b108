package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/moimlab/moim/internal/auth/domain"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/internal/metrics"
	"github.com/moimlab/moim/pkg/cryptox"
	"github.com/moimlab/moim/pkg/idx"
	"github.com/moimlab/moim/pkg/slogx"
)

// IdentityService maps provider assertions onto local accounts. The resolve
// flow is: link lookup, then email merge, then account creation, with a
// single recovery pass when a concurrent request wins a uniqueness race.
type IdentityService struct {
	Store     store.Store
	Usernames *UsernameAllocator
	Metrics   *metrics.Collector
}

// Resolve returns the local account for a provider identity, creating the
// account and link as needed. created reports whether this call made a new
// account.
func (s *IdentityService) Resolve(
	ctx context.Context,
	ident domain.Identity,
) (domain.Account, bool, error) {
	if err := validateIdentity(ident); err != nil {
		return domain.Account{}, false, err
	}
	ident.Email = normalizeEmail(ident.Email)

	account, created, err := s.resolve(ctx, ident)
	if err != nil {
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, false, err
		}

		// A concurrent request created the account or link first. The rows
		// we just failed to insert now exist, so one more pass through the
		// lookups must land on them.
		slogx.FromContext(ctx).Info("identity resolve lost a creation race, retrying lookups",
			"provider", ident.Provider, "subject_id", ident.SubjectID)
		account, created, err = s.resolve(ctx, ident)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.Account{}, false, ErrIdentityPersistence
			}
			return domain.Account{}, false, err
		}
	}

	// Provider profiles drift; mirror the latest name and avatar on every
	// login so the local profile never goes stale.
	if !created && (ident.Name != "" || ident.AvatarURL != "") {
		name := ident.Name
		if name == "" {
			name = account.DisplayName
		}
		avatar := ident.AvatarURL
		if avatar == "" {
			avatar = account.AvatarURL
		}
		if name != account.DisplayName || avatar != account.AvatarURL {
			if err := s.Store.Accounts().UpdateAccountProfile(ctx, account.ID, name, avatar); err != nil {
				slogx.FromContext(ctx).Error("failed to refresh account profile",
					"account_id", account.ID, "err", err)
			} else {
				account.DisplayName = name
				account.AvatarURL = avatar
			}
		}
	}

	if created {
		s.Metrics.RecordAccountCreated()
	}
	return account, created, nil
}

func (s *IdentityService) resolve(
	ctx context.Context,
	ident domain.Identity,
) (domain.Account, bool, error) {
	// 1. Known link: the common case after first login.
	link, err := s.Store.ProviderLinks().GetProviderLink(ctx, ident.Provider, ident.SubjectID)
	if err == nil {
		account, err := s.Store.Accounts().GetAccountByID(ctx, link.AccountID)
		return account, false, err
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, false, err
	}

	// 2. Email merge: an account with this email already exists (local
	// signup, or a different provider). Attach a new link to it.
	account, err := s.Store.Accounts().GetAccountByEmail(ctx, ident.Email)
	if err == nil {
		if err := s.createLink(ctx, s.Store, account.ID, ident); err != nil {
			return domain.Account{}, false, err
		}
		return account, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, false, err
	}

	// 3. First login ever: create account and link together.
	account, err = s.createAccount(ctx, ident)
	if err != nil {
		return domain.Account{}, false, err
	}
	return account, true, nil
}

func (s *IdentityService) createAccount(
	ctx context.Context,
	ident domain.Identity,
) (domain.Account, error) {
	username, err := s.Usernames.Allocate(ctx, usernameSeed(ident))
	if err != nil {
		return domain.Account{}, err
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:            idx.New().String(),
		Email:         ident.Email,
		Username:      username,
		DisplayName:   ident.Name,
		AvatarURL:     ident.AvatarURL,
		EmailVerified: true, // provider-asserted email
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if account.DisplayName == "" {
		account.DisplayName = username
	}

	// Account and link must land together or not at all.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}
		return s.createLink(ctx, tx, account.ID, ident)
	})
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *IdentityService) createLink(
	ctx context.Context,
	st store.Store,
	accountID string,
	ident domain.Identity,
) error {
	return st.ProviderLinks().CreateProviderLink(ctx, domain.ProviderLink{
		ID:        idx.New().String(),
		AccountID: accountID,
		Provider:  ident.Provider,
		SubjectID: ident.SubjectID,
		CreatedAt: time.Now().UTC(),
	})
}

// Signup registers a local password account. The username is derived from
// the display name the same way provider logins derive theirs.
func (s *IdentityService) Signup(
	ctx context.Context,
	email, password, displayName string,
) (domain.Account, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return domain.Account{}, ErrInvalidIdentity
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	seed := displayName
	if seed == "" {
		seed = email[:strings.IndexByte(email, '@')]
	}
	username, err := s.Usernames.Allocate(ctx, seed)
	if err != nil {
		return domain.Account{}, err
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if account.DisplayName == "" {
		account.DisplayName = username
	}

	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}

	s.Metrics.RecordAccountCreated()
	return account, nil
}

// Providers lists the provider links attached to an account.
func (s *IdentityService) Providers(ctx context.Context, accountID string) ([]domain.ProviderLink, error) {
	return s.Store.ProviderLinks().ListAccountProviderLinks(ctx, accountID)
}

func validateIdentity(ident domain.Identity) error {
	if !ident.Provider.Valid() || ident.SubjectID == "" || !validEmail(ident.Email) {
		return ErrInvalidIdentity
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameSeed(ident domain.Identity) string {
	if ident.Name != "" {
		return ident.Name
	}
	return ident.Email[:strings.IndexByte(ident.Email, '@')]
}
