package httpx

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the opaque refresh token.
const RefreshCookieName = "refreshToken"

// SessionCookieMaxAge matches the refresh-token lifetime: both cookies live
// seven days and are re-set on every successful refresh.
const SessionCookieMaxAge = 7 * 24 * time.Hour

// SetSessionCookies installs the access and refresh tokens as HTTP-only,
// secure cookies at path "/".
func SetSessionCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, sessionCookie(AccessCookieName, accessToken, int(SessionCookieMaxAge.Seconds())))
	http.SetCookie(w, sessionCookie(RefreshCookieName, refreshToken, int(SessionCookieMaxAge.Seconds())))
}

// ClearSessionCookies expires both session cookies immediately.
func ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(AccessCookieName, "", 0))
	http.SetCookie(w, sessionCookie(RefreshCookieName, "", 0))
}

// RefreshTokenFromRequest reads the opaque refresh token cookie.
func RefreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
