/**
 * @description
 * This file contains the HTTP handler for money movement between linked
 * accounts.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/app"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/shopspring/decimal"
)

// TransferHandlers holds the transfer service the endpoint uses.
type TransferHandlers struct {
	transfers *app.TransferService
}

// NewTransferHandlers creates a new instance of TransferHandlers.
func NewTransferHandlers(transfers *app.TransferService) *TransferHandlers {
	return &TransferHandlers{transfers: transfers}
}

type createTransferRequest struct {
	SenderBankID        string          `json:"sender_bank_id"`
	ReceiverShareableID string          `json:"receiver_shareable_id"`
	Amount              decimal.Decimal `json:"amount"`
	Name                string          `json:"name"`
}

// CreateTransfer handles POST /api/transfers.
func (h *TransferHandlers) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, "Could not get user from context", http.StatusInternalServerError)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SenderBankID == "" || req.ReceiverShareableID == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	senderID, err := uuid.Parse(req.SenderBankID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sender bank id")
		return
	}

	transfer, err := h.transfers.CreateTransfer(r.Context(), app.TransferInput{
		SenderBankID:        senderID,
		ReceiverShareableID: req.ReceiverShareableID,
		Amount:              req.Amount,
		Name:                req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidTransferAmount), errors.Is(err, app.ErrTransferToSameAccount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrBankLinkNotFound):
			writeError(w, http.StatusNotFound, "Bank link not found")
		default:
			log.Printf("level=error component=api endpoint=create_transfer user_id=%s err=%v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Transfer failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, transfer)
}
