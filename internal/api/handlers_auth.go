/**
 * @description
 * This file contains the HTTP handlers for the session/identity endpoints:
 * sign-up, sign-in, sign-out and current-user lookup. The session token is
 * set as an HttpOnly cookie; API clients may instead carry it as a bearer
 * token.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/horizonfin/banking-service/internal/app"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
)

// AuthHandlers holds the auth service the session endpoints use.
type AuthHandlers struct {
	auth *app.AuthService
}

// NewAuthHandlers creates a new instance of AuthHandlers.
func NewAuthHandlers(auth *app.AuthService) *AuthHandlers {
	return &AuthHandlers{auth: auth}
}

// SignUp handles POST /api/auth/sign-up.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var params domain.SignUpParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.auth.SignUp(r.Context(), params)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		log.Printf("level=error component=api endpoint=sign_up err=%v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, user)
}

// SignIn handles POST /api/auth/sign-in.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var params domain.SignInParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.auth.SignIn(r.Context(), params)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Printf("level=error component=api endpoint=sign_in err=%v", err)
		writeError(w, http.StatusInternalServerError, "Unable to sign in")
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, user)
}

// SignOut handles POST /api/auth/sign-out. The session is revoked server-side
// and the cookie cleared.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := SessionToken(r.Context()); token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			log.Printf("level=warn component=api endpoint=sign_out err=%v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/auth/me: the current logged-in user.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   true,
	})
}
