package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		secure   bool
		wantHSTS string
	}{
		{name: "secure cookies enable HSTS", secure: true, wantHSTS: "max-age=31536000; includeSubDomains"},
		{name: "plain http", secure: false, wantHSTS: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SecurityHeaders(SecurityConfig{CookieSecure: tt.secure})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusTeapot)
				}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

			assert.Equal(t, http.StatusTeapot, rr.Code)
			assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
			assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
			assert.Equal(t, tt.wantHSTS, rr.Header().Get("Strict-Transport-Security"))
		})
	}
}
