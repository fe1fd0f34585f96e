package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/logging"
)

// CookiePaths are the endpoints authenticated by the refresh cookie rather
// than a bearer token. Only they need cross-origin protection.
var CookiePaths = []string{
	"/api/auth/refresh",
	"/api/auth/logout",
}

type CSRFConfig struct {
	// TrustedOrigins may make cross-origin cookie requests, typically the
	// frontend's origins.
	TrustedOrigins []string
	Logger         *logging.Logger
}

// CSRF rejects cross-origin unsafe requests to the cookie endpoints.
func CSRF(cfg CSRFConfig) (func(http.Handler) http.Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	protection := http.NewCrossOriginProtection()
	for _, origin := range cfg.TrustedOrigins {
		if origin == "*" {
			continue
		}
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("trusted origin %q: %w", origin, err)
		}
	}
	protection.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "cross-origin request rejected",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.IP(httputil.GetClientIP(r)),
		)
		httputil.WriteError(w, http.StatusForbidden, "Forbidden")
	}))

	return func(next http.Handler) http.Handler {
		protected := protection.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(CookiePaths, r.URL.Path) {
				protected.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
