package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fe2audio/service/internal/auth"
	"github.com/fe2audio/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// IdentityKey is the context key for the authenticated user's identity.
const IdentityKey contextKey = "identity"

// Identity returns the verified identity stored by RequireAuth or OptionalAuth.
func Identity(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(IdentityKey).(string)
	return id, ok && id != ""
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// RequireAuth returns middleware that validates a Bearer JWT and injects
// the session identity into the request context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			identity, err := auth.IdentityFromToken(token, []byte(jwtSecret))
			if err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth injects the identity when a valid Bearer JWT is present and
// otherwise lets the request through anonymously.
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if identity, err := auth.IdentityFromToken(token, []byte(jwtSecret)); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
