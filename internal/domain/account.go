/**
 * @description
 * This file defines the aggregated account view and the unified transaction
 * model that the merge logic produces. Neither is persisted; both are
 * recomputed from the aggregation provider and the internal ledger on every
 * read.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction of an internal transfer relative to a given BankLink.
const (
	TransactionTypeDebit  = "debit"
	TransactionTypeCredit = "credit"
)

// Account is the aggregated view of one linked bank account with live
// balances from the aggregation provider.
type Account struct {
	ID               string          `json:"id"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	InstitutionID    string          `json:"institution_id"`
	Name             string          `json:"name"`
	OfficialName     string          `json:"official_name"`
	Mask             string          `json:"mask"`
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	BankLinkID       uuid.UUID       `json:"bank_link_id"`
	ShareableID      string          `json:"shareable_id,omitempty"`
}

// Transaction is the unified shape of both external (provider-sourced) and
// internal (ledger-sourced) activity on an account.
type Transaction struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentChannel string          `json:"payment_channel"`
	Category       string          `json:"category"`
	Date           time.Time       `json:"date"`
	Pending        bool            `json:"pending"`
	Type           string          `json:"type,omitempty"`
	AccountID      string          `json:"account_id,omitempty"`
	Image          string          `json:"image,omitempty"`
}

// Transfer is a row in the internal ledger: money moved between two
// BankLinks through the payment-rail provider.
type Transfer struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	SenderBankID   uuid.UUID       `json:"sender_bank_id"`
	ReceiverBankID uuid.UUID       `json:"receiver_bank_id"`
	Channel        string          `json:"channel"`
	Category       string          `json:"category"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AccountsSummary is the result of aggregating every BankLink of a user.
// Failed holds the ids of links whose provider calls failed; the remaining
// accounts are still returned.
type AccountsSummary struct {
	Accounts      []Account       `json:"accounts"`
	TotalAccounts int             `json:"total_accounts"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	Failed        []uuid.UUID     `json:"failed_link_ids,omitempty"`
}

// AccountDetail is the result of resolving one BankLink: the live account
// view plus the merged external+internal transaction list.
type AccountDetail struct {
	Account        Account       `json:"account"`
	Transactions   []Transaction `json:"transactions"`
	RequiresRelink bool          `json:"requires_relink"`
}
