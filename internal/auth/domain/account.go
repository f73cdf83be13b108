package domain

import "time"

// Account is the single local identity a person holds, regardless of how
// many third-party providers they sign in with.
type Account struct {
	ID          string
	Email       string // unique, stored lowercase
	Username    string // unique, derived from the display name
	DisplayName string
	AvatarURL   string

	// EmailVerified is true for provider-created accounts since the
	// provider has already verified the address.
	EmailVerified bool

	// PasswordHash is empty for accounts that only ever signed in through
	// a provider.
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}
