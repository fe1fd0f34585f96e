package auth

import (
	"net/http"
	"time"

	"github.com/JoaoG250/micro-do/common/contracts"
)

// SetRefreshCookie stores the refresh token in an HttpOnly cookie scoped to
// the refresh endpoint.
func SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     contracts.RefreshCookieName,
		Value:    token,
		Path:     contracts.RefreshCookiePath,
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearRefreshCookie expires the refresh cookie immediately.
func ClearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     contracts.RefreshCookieName,
		Value:    "",
		Path:     contracts.RefreshCookiePath,
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// RefreshToken reads the refresh token cookie.
func RefreshToken(r *http.Request) string {
	c, err := r.Cookie(contracts.RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
