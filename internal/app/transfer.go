/**
 * @description
 * This file contains the money-movement workflow: executing a transfer
 * between two linked accounts through the payment-rail provider and recording
 * it in the internal ledger.
 *
 * @notes
 * - This is a write path: every failure is returned to the caller so the UI
 *   can show an actionable error. There is no automatic retry.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/horizonfin/banking-service/pkg/rabbitmq"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTransferAmount is returned for zero or negative amounts.
	ErrInvalidTransferAmount = errors.New("transfer amount must be positive")
	// ErrTransferToSameAccount is returned when source and destination resolve
	// to the same bank link.
	ErrTransferToSameAccount = errors.New("cannot transfer to the same account")
)

// TransferInput is the request for moving money between two linked accounts.
// The destination is addressed by its shareable id.
type TransferInput struct {
	SenderBankID        uuid.UUID
	ReceiverShareableID string
	Amount              decimal.Decimal
	Name                string
}

// TransferService executes transfers between linked accounts.
type TransferService struct {
	bankRepo     store.BankLinkRepository
	transferRepo store.TransferRepository
	dwolla       PaymentRailClient
	publisher    EventPublisher
}

// NewTransferService creates a new instance of TransferService.
func NewTransferService(bankRepo store.BankLinkRepository, transferRepo store.TransferRepository, dwolla PaymentRailClient, publisher EventPublisher) *TransferService {
	return &TransferService{
		bankRepo:     bankRepo,
		transferRepo: transferRepo,
		dwolla:       dwolla,
		publisher:    publisher,
	}
}

// CreateTransfer resolves both bank links, moves the money between their
// funding sources at the payment-rail provider, and writes the ledger row.
// The rail call and the ledger write are two independent writes with no
// spanning transaction; if the ledger write fails after the rail accepted the
// transfer, the error carries the rail transfer URL for reconciliation.
func (s *TransferService) CreateTransfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidTransferAmount
	}

	sender, err := s.bankRepo.FindBankLinkByID(ctx, input.SenderBankID)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	receiver, err := s.bankRepo.FindBankLinkByShareableID(ctx, input.ReceiverShareableID)
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	if sender.ID == receiver.ID {
		return nil, ErrTransferToSameAccount
	}

	amount := domain.DwollaAmount{
		Currency: "USD",
		Value:    input.Amount.StringFixed(2),
	}
	transferURL, err := s.dwolla.CreateTransfer(ctx, sender.FundingSourceURL, receiver.FundingSourceURL, amount)
	if err != nil {
		return nil, fmt.Errorf("payment-rail transfer failed: %w", err)
	}

	name := input.Name
	if name == "" {
		name = "Transfer"
	}
	transfer := &domain.Transfer{
		Name:           name,
		Amount:         input.Amount,
		SenderBankID:   sender.ID,
		ReceiverBankID: receiver.ID,
	}
	transfer, err = s.transferRepo.CreateTransfer(ctx, transfer)
	if err != nil {
		return nil, fmt.Errorf("transfer accepted by rail (%s) but ledger write failed: %w", transferURL, err)
	}

	if pubErr := s.publisher.Publish(ctx, rabbitmq.BankEventsExchange, rabbitmq.RoutingKeyTransferInitiated, domain.TransferInitiatedEvent{
		TransferID:     transfer.ID,
		SenderBankID:   sender.ID,
		ReceiverBankID: receiver.ID,
		Amount:         amount.Value,
		Timestamp:      time.Now().UTC(),
	}); pubErr != nil {
		log.Printf("level=warn component=transfer_service msg=\"transfer.initiated publish failed\" transfer_id=%s err=%v", transfer.ID, pubErr)
	}
	return transfer, nil
}
