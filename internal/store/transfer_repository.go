/**
 * @description
 * This file implements the data access layer for the internal transfer
 * ledger. A transfer touches two bank links (sender and receiver); reads by
 * bank id return rows where the link appears on either side.
 */
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTransferRepository is the PostgreSQL implementation of the TransferRepository.
type PostgresTransferRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTransferRepository creates a new instance of PostgresTransferRepository.
func NewPostgresTransferRepository(db *pgxpool.Pool) *PostgresTransferRepository {
	return &PostgresTransferRepository{db: db}
}

// CreateTransfer inserts a new transfer record into the internal ledger.
func (r *PostgresTransferRepository) CreateTransfer(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error) {
	if transfer.Channel == "" {
		transfer.Channel = "online"
	}
	if transfer.Category == "" {
		transfer.Category = "Transfer"
	}

	query := `
        INSERT INTO transfers (name, amount, sender_bank_id, receiver_bank_id, channel, category)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		transfer.Name,
		transfer.Amount,
		transfer.SenderBankID,
		transfer.ReceiverBankID,
		transfer.Channel,
		transfer.Category,
	).Scan(&transfer.ID, &transfer.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	return transfer, nil
}

// FindTransfersByBankID retrieves all ledger rows where the given bank link
// is the sender or the receiver, most recent first.
func (r *PostgresTransferRepository) FindTransfersByBankID(ctx context.Context, bankID uuid.UUID) ([]domain.Transfer, error) {
	query := `
        SELECT id, name, amount, sender_bank_id, receiver_bank_id, channel, category, created_at
        FROM transfers
        WHERE sender_bank_id = $1 OR receiver_bank_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		var transfer domain.Transfer
		if err := rows.Scan(
			&transfer.ID,
			&transfer.Name,
			&transfer.Amount,
			&transfer.SenderBankID,
			&transfer.ReceiverBankID,
			&transfer.Channel,
			&transfer.Category,
			&transfer.CreatedAt,
		); err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}
