package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/taskminder-api/internal/infrastructure/jwt"
)

type contextKey string

const UsernameKey contextKey = "username"

// Auth returns middleware that validates the Bearer JWT and injects the
// authenticated username into the request context. Only session-purpose
// tokens are accepted; a verification link token can't be replayed as a
// session credential.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			username, err := provider.Validate(tokenStr, jwtinfra.PurposeSession)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), UsernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext extracts the authenticated username from the request context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(UsernameKey).(string)
	return u, ok
}
