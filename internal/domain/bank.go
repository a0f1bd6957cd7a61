/**
 * @description
 * This file defines the BankLink domain model: the internal record binding a
 * user to one externally linked bank account and its current access
 * credential.
 *
 * @notes
 * - AccessToken must always be the most recently issued credential for the
 *   Plaid item. The relink flow rotates it in place; a stale token triggers
 *   "additional consent required" failures at the provider and must never be
 *   retried as-is.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BankLink binds a user to one linked bank account at the aggregation
// provider and to its funding source at the payment-rail provider.
type BankLink struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	PlaidItemID      string    `json:"plaid_item_id"`
	PlaidAccountID   string    `json:"plaid_account_id"`
	AccessToken      string    `json:"-"`
	FundingSourceURL string    `json:"funding_source_url"`
	ShareableID      string    `json:"shareable_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LinkRepair records partially completed linking work so that an orphaned
// external resource (e.g. a Dwolla customer created before a later step
// failed) can be reconciled instead of silently leaking.
type LinkRepair struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// Stages recorded in LinkRepair entries, in the order the linking flow
// executes them.
const (
	RepairStageCustomerCreated      = "customer_created"
	RepairStageFundingSourceCreated = "funding_source_created"
)
