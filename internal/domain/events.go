/**
 * @description
 * This file defines the domain models for events published by the
 * banking-service. These structs represent the contract for messages emitted
 * to the message broker (RabbitMQ).
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BankLinkedEvent is published after a bank account has been linked and its
// funding source attached.
type BankLinkedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	BankLinkID uuid.UUID `json:"bank_link_id"`
	ItemID     string    `json:"item_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// BankRelinkedEvent is published after a credential rotation. The BankLink id
// is unchanged; only the access credential was replaced.
type BankRelinkedEvent struct {
	BankLinkID uuid.UUID `json:"bank_link_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransferInitiatedEvent is published after a transfer has been accepted by
// the payment-rail provider and recorded in the internal ledger.
type TransferInitiatedEvent struct {
	TransferID     uuid.UUID `json:"transfer_id"`
	SenderBankID   uuid.UUID `json:"sender_bank_id"`
	ReceiverBankID uuid.UUID `json:"receiver_bank_id"`
	Amount         string    `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}
