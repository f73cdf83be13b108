package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeUsername(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Alice Kim":   "AliceKim",
		"alice":       "alice",
		"김철수":         "user",
		"a!b":         "userab",
		"":            "user",
		"x1":          "userx1",
		"long enough": "longenough",
	}
	for seed, want := range cases {
		require.Equal(t, want, sanitizeUsername(seed), "seed %q", seed)
	}
}

func TestAllocateReturnsBaseWhenFree(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	alloc := &UsernameAllocator{Store: s}

	got, err := alloc.Allocate(context.Background(), "Alice Kim")
	require.NoError(t, err)
	require.Equal(t, "AliceKim", got)
}

func TestAllocateAppendsSuffixOnCollision(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := newTestIdentityService(t, s)
	ctx := context.Background()

	// Claim the base and the first suffix by hand.
	for _, name := range []string{"AliceKim", "AliceKim1"} {
		_, err := svc.Signup(ctx, name+"@example.com", "correcthorse", name)
		require.NoError(t, err)
	}

	alloc := &UsernameAllocator{Store: s}
	got, err := alloc.Allocate(ctx, "Alice Kim")
	require.NoError(t, err)
	require.Equal(t, "AliceKim2", got)
}
