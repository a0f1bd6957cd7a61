/**
 * @description
 * This file provides the session-authentication middleware for the HTTP
 * server. The session token is read from the session cookie or, for API
 * clients, from the Authorization bearer header, and resolved into the
 * logged-in user through the auth service.
 */
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/horizonfin/banking-service/internal/domain"
)

// SessionCookieName is the cookie the session token travels in.
const SessionCookieName = "horizon_session"

// authContextKey is a custom type for context keys to avoid collisions.
type authContextKey string

const (
	currentUserKey  authContextKey = "currentUser"
	sessionTokenKey authContextKey = "sessionToken"
)

// Authenticator resolves a session token into a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// SessionMiddleware creates a middleware that validates the session token and
// stores the current user in the request context.
func SessionMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionTokenFromRequest(r)
			if token == "" {
				http.Error(w, "Unauthorized: missing session", http.StatusUnauthorized)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "Unauthorized: invalid or expired session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), currentUserKey, user)
			ctx = context.WithValue(ctx, sessionTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// CurrentUser retrieves the authenticated user from the request context.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*domain.User)
	return user, ok
}

// SessionToken retrieves the raw session token from the request context.
func SessionToken(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}
