package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

type contextKey string

const userKey contextKey = "user"

// TokenParser verifies a bearer token and returns its subject.
type TokenParser interface {
	Parse(raw string) (string, error)
}

// UserResolver loads the active user behind a token subject.
type UserResolver interface {
	Authenticate(ctx context.Context, userID string) (*users.User, error)
}

// JWTAuth requires a valid bearer token and stores the user in the request context.
func JWTAuth(tokens TokenParser, resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				WriteDetail(w, http.StatusUnauthorized, "Missing token")
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				WriteDetail(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			u, err := resolver.Authenticate(r.Context(), userID)
			switch {
			case errors.Is(err, users.ErrNotFound):
				WriteDetail(w, http.StatusUnauthorized, "User not found")
				return
			case errors.Is(err, users.ErrInactive):
				WriteDetail(w, http.StatusForbidden, "Account is disabled")
				return
			case err != nil:
				WriteDetail(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin rejects non-admin users. Must run after JWTAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !UserFromContext(r.Context()).IsAdmin() {
			WriteDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(userKey).(*users.User)
	return u
}
