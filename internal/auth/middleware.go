package auth

import (
	"context"
	"net/http"
)

type contextKey string

// ContextKeyAdmin marks requests that passed RequireAdmin.
const ContextKeyAdmin contextKey = "admin"

// Authenticator checks admin bearer tokens against a plain key, a bcrypt
// hash, or both.
type Authenticator struct {
	adminKey     string
	adminKeyHash string
}

// NewAuthenticator creates a new Authenticator. Empty values are ignored;
// with both empty every request is rejected.
func NewAuthenticator(adminKey, adminKeyHash string) *Authenticator {
	return &Authenticator{adminKey: adminKey, adminKeyHash: adminKeyHash}
}

// AuthResult contains the result of an authentication attempt
type AuthResult struct {
	Authenticated bool
	Error         string
}

// Authenticate checks the Authorization header.
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	token := BearerToken(authHeader)
	if token == "" {
		return AuthResult{Error: "missing bearer token"}
	}

	if matchesKey(token, a.adminKey) || matchesHash(token, a.adminKeyHash) {
		return AuthResult{Authenticated: true}
	}

	return AuthResult{Error: "invalid token"}
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// RequireAdmin is a middleware that rejects requests without a valid admin
// token. A nil onError falls back to http.Error.
func (a *Authenticator) RequireAdmin(onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := a.Authenticate(r.Header.Get("Authorization"))
			if !result.Authenticated {
				onError(w, r, http.StatusUnauthorized, result.Error)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAdmin reports whether ctx belongs to a request that passed RequireAdmin.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(ContextKeyAdmin).(bool)
	return ok
}
