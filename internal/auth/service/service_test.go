package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moimlab/moim/internal/auth/domain"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/internal/auth/store/drivers/sqlite"
	"github.com/moimlab/moim/internal/metrics"
	"github.com/moimlab/moim/pkg/idx"
	"github.com/moimlab/moim/pkg/jwtx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestAccount(t *testing.T, s store.Store, email string) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:          idx.New().String(),
		Email:       email,
		Username:    idx.New().String(),
		DisplayName: "Test",
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

func newTestSessionService(t *testing.T, s store.Store) *SessionService {
	t.Helper()

	codec, _ := jwtx.NewCodec("0123456789abcdef0123456789abcdef", "moim-test", 15*time.Minute)
	return &SessionService{
		Codec: codec,
		Tokens: &RefreshTokenService{
			Store: s,
			TTL:   jwtx.DefaultRefreshTokenTTL,
		},
		Store:   s,
		Metrics: metrics.NewCollector(),
	}
}

func newTestIdentityService(t *testing.T, s store.Store) *IdentityService {
	t.Helper()

	return &IdentityService{
		Store:     s,
		Usernames: &UsernameAllocator{Store: s},
		Metrics:   metrics.NewCollector(),
	}
}
