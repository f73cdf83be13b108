package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moimlab/moim/internal/auth/domain"
)

func googleIdentity() domain.Identity {
	return domain.Identity{
		Provider:  domain.ProviderGoogle,
		SubjectID: "g-123",
		Email:     "a@x.com",
		Name:      "Alice",
		AvatarURL: "https://img/alice.png",
	}
}

func TestResolveCreatesAccountOnFirstLogin(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	account, created, err := svc.Resolve(ctx, googleIdentity())
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "a@x.com", account.Email)
	require.Equal(t, "Alice", account.DisplayName)
	require.NotEmpty(t, account.Username)
	require.True(t, account.EmailVerified)

	links, err := svc.Providers(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, domain.ProviderGoogle, links[0].Provider)
	require.Equal(t, "g-123", links[0].SubjectID)
}

func TestResolveReturnsSameAccountOnRepeatLogin(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	first, created, err := svc.Resolve(ctx, googleIdentity())
	require.NoError(t, err)
	require.True(t, created)

	// Same identity, new display name: same account, profile refreshed.
	ident := googleIdentity()
	ident.Name = "Alice Kim"
	second, created, err := svc.Resolve(ctx, ident)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Alice Kim", second.DisplayName)

	stored, err := s.Accounts().GetAccountByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice Kim", stored.DisplayName)
}

func TestResolveMergesByEmail(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	google, created, err := svc.Resolve(ctx, googleIdentity())
	require.NoError(t, err)
	require.True(t, created)

	// Same email from a different provider attaches a second link to the
	// existing account instead of creating a new one.
	kakao := domain.Identity{
		Provider:  domain.ProviderKakao,
		SubjectID: "k-999",
		Email:     "A@X.COM", // case folds onto the same account
		Name:      "Alice",
	}
	account, created, err := svc.Resolve(ctx, kakao)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, google.ID, account.ID)

	links, err := svc.Providers(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
}

func TestResolveRejectsInvalidAssertions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	cases := []domain.Identity{
		{Provider: "github", SubjectID: "x", Email: "a@x.com"},
		{Provider: domain.ProviderGoogle, SubjectID: "", Email: "a@x.com"},
		{Provider: domain.ProviderGoogle, SubjectID: "x", Email: "not-an-email"},
		{Provider: domain.ProviderGoogle, SubjectID: "x", Email: ""},
	}
	for _, ident := range cases {
		_, _, err := svc.Resolve(ctx, ident)
		require.ErrorIs(t, err, ErrInvalidIdentity)
	}
}

func TestResolveConcurrentFirstLogins(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	const callers = 20

	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			account, _, err := svc.Resolve(ctx, googleIdentity())
			ids[i], errs[i] = account.ID, err
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}

	// Exactly one account exists for the email.
	account, err := s.Accounts().GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, ids[0], account.ID)
}

func TestSignup(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	account, err := svc.Signup(ctx, "New@Example.com", "correcthorse", "New Person")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", account.Email)
	require.NotEmpty(t, account.PasswordHash)
	require.False(t, account.EmailVerified)

	_, err = svc.Signup(ctx, "bad-email", "correcthorse", "")
	require.ErrorIs(t, err, ErrInvalidIdentity)
}
