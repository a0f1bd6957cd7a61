/**
 * @description
 * This file defines the interfaces for the data access layer (repositories).
 * Defining interfaces allows for dependency injection and easy mocking in tests,
 * promoting a loosely coupled architecture.
 *
 * @notes
 * - Any component that needs to interact with the database should depend on these
 *   interfaces, not on the concrete PostgreSQL implementation.
 */
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrBankLinkNotFound = errors.New("bank link not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrDuplicateEmail   = errors.New("email already registered")
)

// UserRepository defines the contract for database operations related to users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateDwollaCustomer(ctx context.Context, userID uuid.UUID, customerID, customerURL string) error
}

// BankLinkRepository defines the contract for database operations related to
// linked bank accounts.
type BankLinkRepository interface {
	CreateBankLink(ctx context.Context, link *domain.BankLink) (*domain.BankLink, error)
	FindBankLinkByID(ctx context.Context, linkID uuid.UUID) (*domain.BankLink, error)
	FindBankLinksByUserID(ctx context.Context, userID uuid.UUID) ([]domain.BankLink, error)
	FindBankLinkByShareableID(ctx context.Context, shareableID string) (*domain.BankLink, error)
	RotateAccessToken(ctx context.Context, linkID uuid.UUID, accessToken string) (*domain.BankLink, error)
	RecordLinkRepair(ctx context.Context, repair *domain.LinkRepair) error
	ListUnresolvedLinkRepairs(ctx context.Context, userID uuid.UUID) ([]domain.LinkRepair, error)
}

// TransferRepository defines the contract for the internal transfer ledger.
type TransferRepository interface {
	CreateTransfer(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error)
	FindTransfersByBankID(ctx context.Context, bankID uuid.UUID) ([]domain.Transfer, error)
}

// SessionRepository defines the contract for login session persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	FindSessionByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	RevokeSession(ctx context.Context, sessionID uuid.UUID) error
}
