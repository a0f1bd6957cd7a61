/**
 * @description
 * This file contains the HTTP handlers for account aggregation and bank
 * linking. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application services, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/store: For service logic and custom errors.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/app"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
)

// Rate limits applied to the token-exchange endpoints, per user.
const (
	linkRateLimit       = 10
	linkRateLimitWindow = time.Minute
)

// BankHandlers holds the application services the bank endpoints use.
type BankHandlers struct {
	accounts *app.AccountService
	linking  *app.LinkingService
	limiter  *app.RedisLinkRateLimiter
}

// NewBankHandlers creates a new instance of BankHandlers.
func NewBankHandlers(accounts *app.AccountService, linking *app.LinkingService, limiter *app.RedisLinkRateLimiter) *BankHandlers {
	return &BankHandlers{accounts: accounts, linking: linking, limiter: limiter}
}

// ListAccounts handles GET /api/accounts: every linked account of the current
// user with live balances and the cross-account total.
func (h *BankHandlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}

	summary, err := h.accounts.GetAccounts(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_accounts user_id=%s err=%v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load accounts")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetAccount handles GET /api/accounts/{id}: one account view plus the
// merged transaction history. Absent data (provider unavailable) is a
// non-fatal state and is returned as a null payload, not an error status.
func (h *BankHandlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	linkID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bank link id")
		return
	}

	detail, err := h.accounts.GetAccount(r.Context(), linkID)
	if err != nil {
		if errors.Is(err, store.ErrBankLinkNotFound) {
			writeError(w, http.StatusNotFound, "Bank link not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_account bank_link_id=%s err=%v", linkID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load account")
		return
	}

	// detail is nil when the provider is unavailable; the client renders an
	// "unavailable" state from the null payload.
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": detail})
}

// CreateLinkToken handles POST /api/link/token: a linking-session token for
// the embedded widget, used by both first-time linking and relinking.
func (h *BankHandlers) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}

	token, err := h.linking.CreateLinkToken(r.Context(), user)
	if err != nil {
		log.Printf("level=error component=api endpoint=create_link_token user_id=%s err=%v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Unable to create link token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

// ListLinkRepairs handles GET /api/link/repairs: the current user's
// unresolved compensation records from partially completed linking work.
func (h *BankHandlers) ListLinkRepairs(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}

	repairs, err := h.linking.OutstandingRepairs(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_link_repairs user_id=%s err=%v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load link repairs")
		return
	}
	if repairs == nil {
		repairs = []domain.LinkRepair{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repairs": repairs})
}

type linkBankRequest struct {
	PublicToken string `json:"publicToken"`
}

// LinkBank handles POST /api/banks/link: the full linking flow for a new
// bank account of the current user.
func (h *BankHandlers) LinkBank(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}
	if !h.allowLinkAttempt(w, r, "link", user.ID.String()) {
		return
	}

	var req linkBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	link, err := h.linking.ExchangePublicToken(r.Context(), req.PublicToken, user)
	if err != nil {
		log.Printf("level=error component=api endpoint=link_bank user_id=%s err=%v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to link bank account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"publicTokenExchange": "complete",
		"bankLinkId":          link.ID,
	})
}

type relinkRequest struct {
	PublicToken string `json:"publicToken"`
	BankID      string `json:"bankId"`
}

// Relink handles POST /api/plaid/exchange-token: the consent-refresh flow
// that rotates an existing bank link's credential in place.
func (h *BankHandlers) Relink(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}
	if !h.allowLinkAttempt(w, r, "relink", user.ID.String()) {
		return
	}

	var req relinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" || req.BankID == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	linkID, err := uuid.Parse(req.BankID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bank id")
		return
	}

	if _, err := h.linking.Relink(r.Context(), linkID, req.PublicToken); err != nil {
		if errors.Is(err, store.ErrBankLinkNotFound) {
			writeError(w, http.StatusNotFound, "Bank link not found")
			return
		}
		log.Printf("level=error component=api endpoint=relink bank_link_id=%s err=%v", linkID, err)
		writeError(w, http.StatusInternalServerError, "Failed to exchange token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// allowLinkAttempt applies the per-user rate limit on the token-exchange
// endpoints. A limiter failure fails open: losing rate limiting must not take
// linking down with it.
func (h *BankHandlers) allowLinkAttempt(w http.ResponseWriter, r *http.Request, scope, subject string) bool {
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), scope, subject, linkRateLimit, linkRateLimitWindow)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limit check failed; allowing request\" scope=%s err=%v", scope, err)
		return true
	}
	if count > linkRateLimit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "Too many linking attempts, try again later")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
