package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/internal/metrics"
)

func TestCheckValidDeletesExpiredRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := newTestAccount(t, s, "expired@example.com")
	ctx := context.Background()

	// TTL in the past so the record is born expired.
	tokens := &RefreshTokenService{Store: s, TTL: -time.Minute}
	rt, opaque, err := tokens.Create(ctx, a.ID, testClient)
	require.NoError(t, err)

	found, err := tokens.FindByToken(ctx, opaque)
	require.NoError(t, err)
	require.ErrorIs(t, tokens.CheckValid(ctx, found), ErrRefreshTokenExpired)

	// Fail-closed: the invalid record is gone.
	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, rt.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckValidDeletesUsedRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := newTestAccount(t, s, "used@example.com")
	ctx := context.Background()

	tokens := &RefreshTokenService{Store: s, TTL: time.Hour}
	rt, opaque, err := tokens.Create(ctx, a.ID, testClient)
	require.NoError(t, err)
	require.NoError(t, tokens.MarkUsed(ctx, rt))

	found, err := tokens.FindByToken(ctx, opaque)
	require.NoError(t, err)
	require.ErrorIs(t, tokens.CheckValid(ctx, found), ErrRefreshTokenUsed)

	_, err = tokens.FindByToken(ctx, opaque)
	require.ErrorIs(t, err, ErrRefreshTokenMissing)
}

func TestCheckValidDeletesRevokedRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := newTestAccount(t, s, "revoked@example.com")
	ctx := context.Background()

	tokens := &RefreshTokenService{Store: s, TTL: time.Hour}
	rt, opaque, err := tokens.Create(ctx, a.ID, testClient)
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(ctx, rt))

	found, err := tokens.FindByToken(ctx, opaque)
	require.NoError(t, err)
	require.ErrorIs(t, tokens.CheckValid(ctx, found), ErrRefreshTokenRevoked)
}

func TestCreateEvictsOldestOverCap(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := newTestAccount(t, s, "evict@example.com")
	ctx := context.Background()

	tokens := &RefreshTokenService{Store: s, TTL: time.Hour, MaxPerAccount: 3}

	var opaques []string
	for i := 0; i < 5; i++ {
		_, opaque, err := tokens.Create(ctx, a.ID, testClient)
		require.NoError(t, err)
		opaques = append(opaques, opaque)
		// created_at must differ for eviction ordering.
		time.Sleep(2 * time.Millisecond)
	}

	count, err := tokens.CountValid(ctx, a.ID)
	require.NoError(t, err)
	require.LessOrEqual(t, count, 3)

	// Newest survives, oldest is gone.
	_, err = tokens.FindByToken(ctx, opaques[4])
	require.NoError(t, err)
	_, err = tokens.FindByToken(ctx, opaques[0])
	require.ErrorIs(t, err, ErrRefreshTokenMissing)
}

func TestSweepExpiredRespectsRetention(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := newTestAccount(t, s, "sweep@example.com")
	ctx := context.Background()

	stale := &RefreshTokenService{Store: s, TTL: -48 * time.Hour}
	_, _, err := stale.Create(ctx, a.ID, testClient)
	require.NoError(t, err)

	fresh := &RefreshTokenService{Store: s, TTL: time.Hour}
	_, liveOpaque, err := fresh.Create(ctx, a.ID, testClient)
	require.NoError(t, err)

	deleted, err := fresh.SweepExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = fresh.FindByToken(ctx, liveOpaque)
	require.NoError(t, err)
}

func TestHousekeeperSweeps(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := newTestAccount(t, s, "housekeeping@example.com")
	ctx := context.Background()

	stale := &RefreshTokenService{Store: s, TTL: -48 * time.Hour}
	_, _, err := stale.Create(ctx, a.ID, testClient)
	require.NoError(t, err)

	h := &Housekeeper{
		Tokens:    &RefreshTokenService{Store: s, TTL: time.Hour},
		Metrics:   metrics.NewCollector(),
		Interval:  time.Hour, // only the immediate first sweep matters here
		Retention: 24 * time.Hour,
	}
	h.Start(ctx)
	h.Stop()

	total, err := s.RefreshTokens().CountAccountRefreshTokens(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, total)
}
