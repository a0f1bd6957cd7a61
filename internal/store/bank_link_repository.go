/**
 * @description
 * This file implements the data access layer for linked bank accounts and the
 * link-repair compensation records.
 *
 * @notes
 * - RotateAccessToken is deliberately the only write that touches an existing
 *   bank_links row: the relink flow replaces the credential in place and must
 *   leave the id, funding source and shareable id untouched.
 */
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBankLinkRepository is the PostgreSQL implementation of the BankLinkRepository.
type PostgresBankLinkRepository struct {
	db *pgxpool.Pool
}

// NewPostgresBankLinkRepository creates a new instance of PostgresBankLinkRepository.
func NewPostgresBankLinkRepository(db *pgxpool.Pool) *PostgresBankLinkRepository {
	return &PostgresBankLinkRepository{db: db}
}

const bankLinkColumns = `id, user_id, plaid_item_id, plaid_account_id, access_token, funding_source_url, shareable_id, created_at, updated_at`

// CreateBankLink inserts a new bank link record into the database.
func (r *PostgresBankLinkRepository) CreateBankLink(ctx context.Context, link *domain.BankLink) (*domain.BankLink, error) {
	query := `
        INSERT INTO bank_links (user_id, plaid_item_id, plaid_account_id, access_token, funding_source_url, shareable_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		link.UserID,
		link.PlaidItemID,
		link.PlaidAccountID,
		link.AccessToken,
		link.FundingSourceURL,
		link.ShareableID,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create bank link: %w", err)
	}
	return link, nil
}

// FindBankLinkByID retrieves a single bank link by its id.
func (r *PostgresBankLinkRepository) FindBankLinkByID(ctx context.Context, linkID uuid.UUID) (*domain.BankLink, error) {
	query := `SELECT ` + bankLinkColumns + ` FROM bank_links WHERE id = $1`
	return r.scanBankLink(r.db.QueryRow(ctx, query, linkID))
}

// FindBankLinksByUserID retrieves all bank links belonging to a user.
func (r *PostgresBankLinkRepository) FindBankLinksByUserID(ctx context.Context, userID uuid.UUID) ([]domain.BankLink, error) {
	query := `SELECT ` + bankLinkColumns + ` FROM bank_links WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank links: %w", err)
	}
	defer rows.Close()

	var links []domain.BankLink
	for rows.Next() {
		link, err := r.scanBankLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// FindBankLinkByShareableID resolves a bank link from its shareable id, used
// when another user addresses it as a transfer destination.
func (r *PostgresBankLinkRepository) FindBankLinkByShareableID(ctx context.Context, shareableID string) (*domain.BankLink, error) {
	query := `SELECT ` + bankLinkColumns + ` FROM bank_links WHERE shareable_id = $1`
	return r.scanBankLink(r.db.QueryRow(ctx, query, shareableID))
}

// RotateAccessToken replaces the stored credential for a bank link and
// returns the updated record.
func (r *PostgresBankLinkRepository) RotateAccessToken(ctx context.Context, linkID uuid.UUID, accessToken string) (*domain.BankLink, error) {
	query := `
        UPDATE bank_links
        SET access_token = $2, updated_at = now()
        WHERE id = $1
        RETURNING ` + bankLinkColumns
	return r.scanBankLink(r.db.QueryRow(ctx, query, linkID, accessToken))
}

// RecordLinkRepair persists a compensation record for partially completed
// linking work.
func (r *PostgresBankLinkRepository) RecordLinkRepair(ctx context.Context, repair *domain.LinkRepair) error {
	query := `
        INSERT INTO link_repairs (user_id, stage, detail)
        VALUES ($1, $2, $3)
        RETURNING id, resolved, created_at
    `
	err := r.db.QueryRow(ctx, query, repair.UserID, repair.Stage, repair.Detail).
		Scan(&repair.ID, &repair.Resolved, &repair.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record link repair: %w", err)
	}
	return nil
}

// ListUnresolvedLinkRepairs returns the outstanding compensation records for a user.
func (r *PostgresBankLinkRepository) ListUnresolvedLinkRepairs(ctx context.Context, userID uuid.UUID) ([]domain.LinkRepair, error) {
	query := `
        SELECT id, user_id, stage, detail, resolved, created_at
        FROM link_repairs
        WHERE user_id = $1 AND NOT resolved
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query link repairs: %w", err)
	}
	defer rows.Close()

	var repairs []domain.LinkRepair
	for rows.Next() {
		var repair domain.LinkRepair
		if err := rows.Scan(&repair.ID, &repair.UserID, &repair.Stage, &repair.Detail, &repair.Resolved, &repair.CreatedAt); err != nil {
			return nil, err
		}
		repairs = append(repairs, repair)
	}
	return repairs, rows.Err()
}

func (r *PostgresBankLinkRepository) scanBankLink(row pgx.Row) (*domain.BankLink, error) {
	var link domain.BankLink
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.PlaidItemID,
		&link.PlaidAccountID,
		&link.AccessToken,
		&link.FundingSourceURL,
		&link.ShareableID,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBankLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}
