package domain

import "time"

// Provider identifies a supported third-party identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderNaver  Provider = "naver"
	ProviderKakao  Provider = "kakao"
)

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderNaver, ProviderKakao:
		return true
	}
	return false
}

func (p Provider) String() string { return string(p) }

// ProviderLink associates a local account with a provider-scoped subject id.
// A given (provider, subject id) pair maps to exactly one account.
type ProviderLink struct {
	ID        string
	AccountID string
	Provider  Provider
	SubjectID string
	CreatedAt time.Time
}

// Identity is the normalized assertion a provider adapter produces from a
// raw userinfo payload. The resolver only ever sees this fixed shape.
type Identity struct {
	Provider  Provider
	SubjectID string
	Email     string
	Name      string
	AvatarURL string
}
