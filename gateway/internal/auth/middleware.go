// Package auth authenticates gateway requests with bearer access tokens.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/JoaoG250/micro-do/common/httputil"
	"github.com/JoaoG250/micro-do/common/tokens"
)

type contextKey string

const identityKey contextKey = "identity"

// Verifier checks an access token and returns its claims.
type Verifier interface {
	Verify(token string, kind tokens.Kind) (*tokens.Claims, error)
}

type Middleware struct {
	verifier Verifier
}

func NewMiddleware(verifier Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Protect rejects requests without a valid access token and stores the
// caller's identity on the request context.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := m.verifier.Verify(token, tokens.KindAccess)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := WithIdentity(r.Context(), claims.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithIdentity(ctx context.Context, id tokens.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the authenticated caller, if any.
func GetIdentity(ctx context.Context) (tokens.Identity, bool) {
	id, ok := ctx.Value(identityKey).(tokens.Identity)
	return id, ok
}

// GetUserID returns the authenticated user's id or "".
func GetUserID(ctx context.Context) string {
	id, _ := GetIdentity(ctx)
	return id.UserID
}
