package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/moimlab/moim/pkg/jwtx"
	"github.com/moimlab/moim/pkg/slogx"
)

// AccessCookieName is the cookie checked when no Authorization header is
// present. Set by the login and refresh endpoints.
const AccessCookieName = "accessToken"

// TokenVerifier validates a signed access token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (jwtx.Claims, error)
}

// AuthnMiddleware authenticates requests from a bearer Authorization header,
// falling back to the accessToken cookie. An expired token gets a distinct
// error code so clients know to attempt a refresh instead of a re-login.
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := bearerToken(r)
			if raw == "" {
				writeBearerError(w, "invalid_token", "missing access token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, "expired_token", "access token expired")
					return
				}
				log.Warn("access token verification failed", "err", err)
				writeBearerError(w, "invalid_token", "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyAccountID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the access token from the Authorization header, or
// from the accessToken cookie when the header is absent.
func bearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if !strings.HasPrefix(authz, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	}

	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RFC 6750-style error response for bearer auth.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="`+code+`", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
