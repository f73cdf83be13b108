package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moimlab/moim/internal/auth/domain"
)

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	creds := Credentials{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://moim.test/cb"}
	r := NewRegistry(NewGoogle(creds), NewKakao(creds))

	g, err := r.Get("google")
	require.NoError(t, err)
	require.Equal(t, domain.ProviderGoogle, g.Name())

	_, err = r.Get("naver")
	require.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.Get("github")
	require.ErrorIs(t, err, ErrUnknownProvider)

	require.ElementsMatch(t, []string{"google", "kakao"}, r.Names())
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	t.Parallel()

	creds := Credentials{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://moim.test/cb"}
	g := NewGoogle(creds)

	url := g.AuthCodeURL("state-token")
	require.Contains(t, url, "state=state-token")
	require.Contains(t, url, "client_id=id")
}

func TestCredentialsConfigured(t *testing.T) {
	t.Parallel()

	require.False(t, Credentials{}.Configured())
	require.False(t, Credentials{ClientID: "id"}.Configured())
	require.True(t, Credentials{ClientID: "id", ClientSecret: "s"}.Configured())
}
