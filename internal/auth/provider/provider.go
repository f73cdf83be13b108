// Package provider adapts third-party OAuth2 identity providers into the
// fixed identity shape the resolver consumes. Each adapter owns its
// provider's endpoints and userinfo payload quirks; nothing provider-shaped
// leaks past this package.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/moimlab/moim/internal/auth/domain"
)

// ErrUnknownProvider is returned when a request names a provider that is
// not registered.
var ErrUnknownProvider = errors.New("provider: unknown provider")

// userInfoTimeout bounds the userinfo round trip so a slow provider cannot
// hang a login.
const userInfoTimeout = 10 * time.Second

// Adapter is one configured OAuth2 provider.
type Adapter interface {
	// Name is the stable provider identifier used in routes and links.
	Name() domain.Provider

	// AuthCodeURL builds the authorization redirect for the given CSRF state.
	AuthCodeURL(state string) string

	// Exchange redeems an authorization code and fetches the user's profile,
	// normalized to the fixed identity shape.
	Exchange(ctx context.Context, code string) (domain.Identity, error)
}

// Credentials configures one provider from the environment.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether the provider has enough config to be enabled.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Registry holds the enabled adapters keyed by provider name.
type Registry struct {
	adapters map[domain.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Provider]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for a provider name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[domain.Provider(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return a, nil
}

// Names lists the enabled providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name.String())
	}
	return names
}

// fetchUserInfo performs an authenticated GET against a provider's userinfo
// endpoint and returns the raw body.
func fetchUserInfo(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, userInfoTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider: userinfo returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
