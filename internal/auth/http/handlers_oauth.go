package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/moimlab/moim/internal/auth/service"
	"github.com/moimlab/moim/pkg/httpx"
	"github.com/moimlab/moim/pkg/slogx"
)

// stateCookieName carries the anti-CSRF nonce between the authorize
// redirect and the provider callback.
const stateCookieName = "oauthState"

const stateCookieMaxAge = 10 * time.Minute

func (rt *Router) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	adapter, err := rt.Providers.Get(r.PathValue("provider"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "unsupported identity provider")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, adapter.AuthCodeURL(state), http.StatusFound)
}

func (rt *Router) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	adapter, err := rt.Providers.Get(r.PathValue("provider"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "unsupported identity provider")
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		httpx.WriteError(w, http.StatusUnauthorized, "access_denied", errMsg)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		log.Warn("oauth callback state mismatch", "provider", adapter.Name())
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_state", "state mismatch, restart the login flow")
		return
	}
	// One-shot nonce.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing authorization code")
		return
	}

	ident, err := adapter.Exchange(ctx, code)
	if err != nil {
		log.Warn("oauth code exchange failed", "provider", adapter.Name(), "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "authorization code rejected")
		return
	}

	account, created, err := rt.Identity.Resolve(ctx, ident)
	if err != nil {
		if errors.Is(err, service.ErrInvalidIdentity) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_identity", "provider returned an unusable profile")
			return
		}
		log.Error("identity resolution failed", "provider", adapter.Name(), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login failed")
		return
	}

	pair, err := rt.Sessions.Login(ctx, account.ID, clientContext(r))
	if err != nil {
		log.Error("post-callback login failed", "account_id", account.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login failed")
		return
	}

	rt.Metrics.RecordLogin(adapter.Name().String())
	log.Info("provider login",
		"provider", adapter.Name(), "account_id", account.ID, "created", created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.SetSessionCookies(w, pair.AccessToken, pair.RefreshToken)
	httpx.WriteJSON(w, status, sessionResponse{
		Account: toAccountResponse(account),
		Tokens:  pair,
	})
}
