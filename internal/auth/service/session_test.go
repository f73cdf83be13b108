package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moimlab/moim/internal/auth/domain"
)

var testClient = domain.ClientContext{UserAgent: "go-test", IP: "127.0.0.1"}

func TestLoginIssuesPair(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "login@example.com")
	ctx := context.Background()

	pair, err := svc.Login(ctx, a.ID, testClient)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(15*60), pair.ExpiresIn)

	claims, err := svc.Codec.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, a.ID, claims.Subject)

	count, err := svc.Tokens.CountValid(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRefreshRotatesToken(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "rotate@example.com")
	ctx := context.Background()

	first, err := svc.Login(ctx, a.ID, testClient)
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken, testClient)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The rotated-out token never works again.
	_, err = svc.Refresh(ctx, first.RefreshToken, testClient)
	require.Error(t, err)
	require.True(t,
		err == ErrRefreshTokenUsed || err == ErrRefreshTokenRevoked || err == ErrRefreshTokenMissing,
		"got %v", err)

	// The replacement still does.
	_, err = svc.Refresh(ctx, second.RefreshToken, testClient)
	require.NoError(t, err)
}

func TestRefreshEmptyToken(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)

	_, err := svc.Refresh(context.Background(), "", testClient)
	require.ErrorIs(t, err, ErrRefreshTokenMissing)
}

func TestRefreshUnknownToken(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)

	_, err := svc.Refresh(context.Background(), "never-issued", testClient)
	require.ErrorIs(t, err, ErrRefreshTokenMissing)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "race@example.com")
	ctx := context.Background()

	pair, err := svc.Login(ctx, a.ID, testClient)
	require.NoError(t, err)

	const callers = 16

	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Refresh(ctx, pair.RefreshToken, testClient)
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	require.Equal(t, 1, wins)
}

func TestPerAccountCapHolds(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "cap@example.com")
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := svc.Login(ctx, a.ID, testClient)
		require.NoError(t, err)
	}

	count, err := svc.Tokens.CountValid(ctx, a.ID)
	require.NoError(t, err)
	require.LessOrEqual(t, count, DefaultMaxTokensPerAccount)
}

func TestLogoutSingleSession(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "logout@example.com")
	ctx := context.Background()

	first, err := svc.Login(ctx, a.ID, testClient)
	require.NoError(t, err)
	second, err := svc.Login(ctx, a.ID, testClient)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, a.ID, first.RefreshToken))

	count, err := svc.Tokens.CountValid(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// The untouched session refreshes fine.
	_, err = svc.Refresh(ctx, second.RefreshToken, testClient)
	require.NoError(t, err)
}

func TestLogoutWithoutTokenRevokesEverything(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "logoutall@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, a.ID, testClient)
		require.NoError(t, err)
	}

	require.NoError(t, svc.Logout(ctx, a.ID, ""))

	count, err := svc.Tokens.CountValid(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLogoutIgnoresForeignToken(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	alice := newTestAccount(t, s, "alice@example.com")
	mallory := newTestAccount(t, s, "mallory@example.com")
	ctx := context.Background()

	pair, err := svc.Login(ctx, alice.ID, testClient)
	require.NoError(t, err)

	// Mallory presents Alice's refresh token; Alice's session survives.
	require.NoError(t, svc.Logout(ctx, mallory.ID, pair.RefreshToken))

	_, err = svc.Refresh(ctx, pair.RefreshToken, testClient)
	require.NoError(t, err)
}

func TestLoginWithPassword(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	idn := newTestIdentityService(t, s)
	ctx := context.Background()

	created, err := idn.Signup(ctx, "Pass@Example.com", "hunter2hunter2", "Pat")
	require.NoError(t, err)

	account, pair, err := svc.LoginWithPassword(ctx, "pass@example.com", "hunter2hunter2", testClient)
	require.NoError(t, err)
	require.Equal(t, created.ID, account.ID)
	require.NotEmpty(t, pair.RefreshToken)

	_, _, err = svc.LoginWithPassword(ctx, "pass@example.com", "wrong", testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.LoginWithPassword(ctx, "nobody@example.com", "hunter2hunter2", testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionStats(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestSessionService(t, s)
	a := newTestAccount(t, s, "stats@example.com")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, a.ID, testClient)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Active)
	require.Equal(t, DefaultMaxTokensPerAccount, stats.Max)
	require.True(t, stats.NearLimit)
}
