package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moimlab/moim/internal/auth/domain"
	"github.com/moimlab/moim/internal/auth/service"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/pkg/httpx"
	"github.com/moimlab/moim/pkg/slogx"
)

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type sessionResponse struct {
	Account accountResponse  `json:"account"`
	Tokens  domain.TokenPair `json:"tokens"`
}

const minPasswordLen = 10

func toAccountResponse(a domain.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
	}
}

func clientContext(r *http.Request) domain.ClientContext {
	return domain.ClientContext{
		UserAgent: r.UserAgent(),
		IP:        httpx.IPKeyExtractor(r),
	}
}

func (rt *Router) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if len(req.Password) < minPasswordLen {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "password too short")
		return
	}

	account, err := rt.Identity.Signup(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidIdentity):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid email address")
		case errors.Is(err, store.ErrAlreadyExists):
			httpx.WriteError(w, http.StatusConflict, "account_exists", "email or username already registered")
		default:
			slogx.FromContext(ctx).Error("signup failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "signup failed")
		}
		return
	}

	pair, err := rt.Sessions.Login(ctx, account.ID, clientContext(r))
	if err != nil {
		slogx.FromContext(ctx).Error("post-signup login failed", "account_id", account.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "signup failed")
		return
	}

	rt.Metrics.RecordLogin("password")
	httpx.SetSessionCookies(w, pair.AccessToken, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{
		Account: toAccountResponse(account),
		Tokens:  pair,
	})
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	account, pair, err := rt.Sessions.LoginWithPassword(ctx, req.Email, req.Password, clientContext(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password incorrect")
			return
		}
		slogx.FromContext(ctx).Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login failed")
		return
	}

	httpx.SetSessionCookies(w, pair.AccessToken, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Account: toAccountResponse(account),
		Tokens:  pair,
	})
}

func (rt *Router) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	presented := httpx.RefreshTokenFromRequest(r)
	pair, err := rt.Sessions.Refresh(ctx, presented, clientContext(r))
	if err != nil {
		// Every refresh failure forces re-authentication; the cookies are
		// dead weight from here on.
		httpx.ClearSessionCookies(w)
		httpx.WriteError(w, http.StatusUnauthorized, refreshErrorCode(err), "refresh token rejected")
		return
	}

	httpx.SetSessionCookies(w, pair.AccessToken, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func refreshErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrRefreshTokenMissing):
		return "invalid_grant"
	case errors.Is(err, service.ErrRefreshTokenExpired):
		return "expired_grant"
	case errors.Is(err, service.ErrRefreshTokenUsed),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return "revoked_grant"
	default:
		return "server_error"
	}
}

func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "not authenticated")
		return
	}

	if err := rt.Sessions.Logout(ctx, accountID, httpx.RefreshTokenFromRequest(r)); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "account_id", accountID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "logout failed")
		return
	}

	httpx.ClearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "not authenticated")
		return
	}

	if err := rt.Sessions.LogoutEverywhere(ctx, accountID); err != nil {
		slogx.FromContext(ctx).Error("logout all failed", "account_id", accountID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "logout failed")
		return
	}

	httpx.ClearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "not authenticated")
		return
	}

	stats, err := rt.Sessions.Stats(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Error("session stats failed", "account_id", accountID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not load sessions")
		return
	}

	links, err := rt.Identity.Providers(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Error("provider links lookup failed", "account_id", accountID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not load sessions")
		return
	}

	providers := make([]string, 0, len(links))
	for _, l := range links {
		providers = append(providers, l.Provider.String())
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"sessions":  stats,
		"providers": providers,
	})
}
