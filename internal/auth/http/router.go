// Package http exposes the authentication surface: local signup and login,
// the OAuth2 provider flows, token refresh and logout, plus health and
// metrics endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/moimlab/moim/internal/auth/provider"
	"github.com/moimlab/moim/internal/auth/service"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/internal/metrics"
	"github.com/moimlab/moim/pkg/httpx"
	"github.com/moimlab/moim/pkg/slogx"
)

// Router wires the handlers onto their routes with the right middleware
// stacks.
type Router struct {
	Sessions  *service.SessionService
	Identity  *service.IdentityService
	Providers *provider.Registry
	Store     store.Store
	Metrics   *metrics.Collector
}

// Handler builds the full route table. Credential endpoints sit behind the
// strict per-IP limit; everything else gets the lenient one.
func (rt *Router) Handler(log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	authn := httpx.AuthnMiddleware(rt.Sessions.Codec)
	strict := httpx.RateLimitByIP(httpx.StrictLimit)
	lenient := httpx.RateLimitByIP(httpx.LenientLimit)

	// Credential and token endpoints.
	mux.Handle("POST /auth/signup", httpx.Chain(http.HandlerFunc(rt.handleSignup), strict))
	mux.Handle("POST /auth/login", httpx.Chain(http.HandlerFunc(rt.handleLogin), strict))
	mux.Handle("POST /auth/refresh", httpx.Chain(http.HandlerFunc(rt.handleRefresh), strict))

	// OAuth2 provider flows.
	mux.Handle("GET /auth/{provider}/authorize", httpx.Chain(http.HandlerFunc(rt.handleAuthorize), strict))
	mux.Handle("GET /auth/{provider}/callback", httpx.Chain(http.HandlerFunc(rt.handleCallback), strict))

	// Authenticated session management.
	mux.Handle("POST /auth/logout", httpx.Chain(http.HandlerFunc(rt.handleLogout), lenient, authn))
	mux.Handle("POST /auth/logout_all", httpx.Chain(http.HandlerFunc(rt.handleLogoutAll), lenient, authn))
	mux.Handle("GET /auth/sessions", httpx.Chain(http.HandlerFunc(rt.handleSessions), lenient, authn))

	// Operational endpoints.
	mux.HandleFunc("GET /livez", rt.handleLivez)
	mux.HandleFunc("GET /readyz", rt.handleReadyz)
	mux.Handle("GET /metrics", rt.Metrics.Handler())

	return httpx.Chain(mux, slogx.HTTPMiddleware(log))
}
