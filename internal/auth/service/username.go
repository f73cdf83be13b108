package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/moimlab/moim/internal/auth/store"
)

// usernameMinLen is the shortest username we will derive automatically.
const usernameMinLen = 4

// UsernameAllocator derives unique usernames from free-form display names
// coming back from identity providers.
type UsernameAllocator struct {
	Store store.Store
}

// Allocate sanitizes the seed down to [A-Za-z0-9] and probes the store with
// increasing integer suffixes until an unclaimed name is found. Two
// concurrent allocations may race to the same name; the unique index on
// accounts.username is the real arbiter, and callers retry on
// store.ErrAlreadyExists.
func (a *UsernameAllocator) Allocate(ctx context.Context, seed string) (string, error) {
	base := sanitizeUsername(seed)

	exists, err := a.Store.Accounts().UsernameExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		exists, err := a.Store.Accounts().UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// sanitizeUsername strips everything outside [A-Za-z0-9] and pads short
// results with a "user" prefix so the name stays readable.
func sanitizeUsername(seed string) string {
	var b strings.Builder
	for _, r := range seed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}

	name := b.String()
	if len(name) < usernameMinLen {
		name = "user" + name
	}
	return name
}
