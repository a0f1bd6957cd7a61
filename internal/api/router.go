/**
 * @description
 * This file sets up the HTTP router for the banking-service using the `chi`
 * routing library. It defines all the API routes and applies necessary middleware.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The routing library.
 * - The service's internal packages for handlers and middleware.
 */
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates and configures a new HTTP router.
func NewRouter(authHandler *AuthHandlers, bankHandler *BankHandlers, transferHandler *TransferHandlers, auth Authenticator) http.Handler {
	r := chi.NewRouter()

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/sign-up", authHandler.SignUp)
		r.Post("/auth/sign-in", authHandler.SignIn)

		// Routes that require an authenticated session
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(auth))

			r.Post("/auth/sign-out", authHandler.SignOut)
			r.Get("/auth/me", authHandler.Me)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", bankHandler.ListAccounts)
				r.Get("/{id}", bankHandler.GetAccount)
			})

			r.Post("/link/token", bankHandler.CreateLinkToken)
			r.Get("/link/repairs", bankHandler.ListLinkRepairs)
			r.Post("/banks/link", bankHandler.LinkBank)
			r.Post("/plaid/exchange-token", bankHandler.Relink)

			r.Post("/transfers", transferHandler.CreateTransfer)
		})
	})

	return r
}
