package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/horizonfin/banking-service/pkg/rabbitmq"
	"github.com/shopspring/decimal"
)

func seedTransferLinks(bankRepo *memBankRepo) (sender, receiver domain.BankLink) {
	sender = bankRepo.add(domain.BankLink{
		UserID:           uuid.New(),
		FundingSourceURL: "https://api-sandbox.dwolla.com/funding-sources/fs-sender",
		ShareableID:      EncodeShareableID("acct-sender"),
	})
	receiver = bankRepo.add(domain.BankLink{
		UserID:           uuid.New(),
		FundingSourceURL: "https://api-sandbox.dwolla.com/funding-sources/fs-receiver",
		ShareableID:      EncodeShareableID("acct-receiver"),
	})
	return sender, receiver
}

func TestCreateTransferRejectsNonPositiveAmount(t *testing.T) {
	bankRepo := newMemBankRepo()
	sender, receiver := seedTransferLinks(bankRepo)
	service := NewTransferService(bankRepo, &memTransferRepo{}, &stubRail{}, &stubPublisher{})

	tests := []struct {
		name   string
		amount decimal.Decimal
	}{
		{name: "zero", amount: decimal.Zero},
		{name: "negative", amount: decimal.RequireFromString("-5.00")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateTransfer(context.Background(), TransferInput{
				SenderBankID:        sender.ID,
				ReceiverShareableID: receiver.ShareableID,
				Amount:              tc.amount,
			})
			if !errors.Is(err, ErrInvalidTransferAmount) {
				t.Errorf("expected ErrInvalidTransferAmount, got %v", err)
			}
		})
	}
}

func TestCreateTransferRejectsSameAccount(t *testing.T) {
	bankRepo := newMemBankRepo()
	sender, _ := seedTransferLinks(bankRepo)
	service := NewTransferService(bankRepo, &memTransferRepo{}, &stubRail{}, &stubPublisher{})

	_, err := service.CreateTransfer(context.Background(), TransferInput{
		SenderBankID:        sender.ID,
		ReceiverShareableID: sender.ShareableID,
		Amount:              decimal.RequireFromString("10.00"),
	})
	if !errors.Is(err, ErrTransferToSameAccount) {
		t.Errorf("expected ErrTransferToSameAccount, got %v", err)
	}
}

func TestCreateTransferUnknownEndpoints(t *testing.T) {
	bankRepo := newMemBankRepo()
	sender, receiver := seedTransferLinks(bankRepo)
	service := NewTransferService(bankRepo, &memTransferRepo{}, &stubRail{}, &stubPublisher{})

	tests := []struct {
		name  string
		input TransferInput
	}{
		{
			name: "unknown sender",
			input: TransferInput{
				SenderBankID:        uuid.New(),
				ReceiverShareableID: receiver.ShareableID,
				Amount:              decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "unknown receiver",
			input: TransferInput{
				SenderBankID:        sender.ID,
				ReceiverShareableID: "bm8tc3VjaC1hY2NvdW50",
				Amount:              decimal.RequireFromString("10.00"),
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateTransfer(context.Background(), tc.input)
			if !errors.Is(err, store.ErrBankLinkNotFound) {
				t.Errorf("expected ErrBankLinkNotFound, got %v", err)
			}
		})
	}
}

func TestCreateTransferHappyPath(t *testing.T) {
	bankRepo := newMemBankRepo()
	sender, receiver := seedTransferLinks(bankRepo)
	transferRepo := &memTransferRepo{}
	rail := &stubRail{}
	publisher := &stubPublisher{}
	service := NewTransferService(bankRepo, transferRepo, rail, publisher)

	transfer, err := service.CreateTransfer(context.Background(), TransferInput{
		SenderBankID:        sender.ID,
		ReceiverShareableID: receiver.ShareableID,
		Amount:              decimal.RequireFromString("10.5"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(rail.transfers) != 1 {
		t.Fatalf("expected 1 rail transfer, got %d", len(rail.transfers))
	}
	railCall := rail.transfers[0]
	if railCall.sourceURL != sender.FundingSourceURL || railCall.destinationURL != receiver.FundingSourceURL {
		t.Errorf("rail transfer between wrong funding sources: %s -> %s", railCall.sourceURL, railCall.destinationURL)
	}
	if railCall.amount.Currency != "USD" || railCall.amount.Value != "10.50" {
		t.Errorf("expected USD 10.50, got %s %s", railCall.amount.Currency, railCall.amount.Value)
	}

	if transfer.Name != "Transfer" {
		t.Errorf("expected default transfer name, got %q", transfer.Name)
	}
	if transfer.SenderBankID != sender.ID || transfer.ReceiverBankID != receiver.ID {
		t.Errorf("ledger row carries wrong endpoints: %s -> %s", transfer.SenderBankID, transfer.ReceiverBankID)
	}
	if len(transferRepo.transfers) != 1 {
		t.Errorf("expected 1 ledger row, got %d", len(transferRepo.transfers))
	}

	keys := publisher.routingKeys()
	if len(keys) != 1 || keys[0] != rabbitmq.RoutingKeyTransferInitiated {
		t.Errorf("expected one %s event, got %v", rabbitmq.RoutingKeyTransferInitiated, keys)
	}
}

func TestCreateTransferRailFailureSkipsLedger(t *testing.T) {
	bankRepo := newMemBankRepo()
	sender, receiver := seedTransferLinks(bankRepo)
	transferRepo := &memTransferRepo{}
	rail := &stubRail{
		createTransferFn: func(context.Context, string, string, domain.DwollaAmount) (string, error) {
			return "", errors.New("insufficient funds")
		},
	}
	service := NewTransferService(bankRepo, transferRepo, rail, &stubPublisher{})

	_, err := service.CreateTransfer(context.Background(), TransferInput{
		SenderBankID:        sender.ID,
		ReceiverShareableID: receiver.ShareableID,
		Amount:              decimal.RequireFromString("10.00"),
	})
	if err == nil {
		t.Fatal("expected rail failure to surface")
	}
	if len(transferRepo.transfers) != 0 {
		t.Errorf("no ledger row must be written when the rail rejects, got %d", len(transferRepo.transfers))
	}
}

func TestCreateTransferLedgerFailureReportsRailURL(t *testing.T) {
	bankRepo := newMemBankRepo()
	sender, receiver := seedTransferLinks(bankRepo)
	transferRepo := &memTransferRepo{createErr: errors.New("db down")}
	service := NewTransferService(bankRepo, transferRepo, &stubRail{}, &stubPublisher{})

	_, err := service.CreateTransfer(context.Background(), TransferInput{
		SenderBankID:        sender.ID,
		ReceiverShareableID: receiver.ShareableID,
		Amount:              decimal.RequireFromString("10.00"),
	})
	if err == nil {
		t.Fatal("expected ledger failure to surface")
	}
	if !strings.Contains(err.Error(), "https://api-sandbox.dwolla.com/transfers/tr-new") {
		t.Errorf("error must carry the rail transfer url for reconciliation, got %q", err.Error())
	}
}
