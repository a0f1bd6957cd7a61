/**
 * @description
 * This file implements the data access layer for login sessions. Sessions are
 * persisted so a sign-out revokes the token server-side even before the JWT
 * expires.
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

// PostgresSessionRepository is the PostgreSQL implementation of the SessionRepository.
type PostgresSessionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new instance of PostgresSessionRepository.
func NewPostgresSessionRepository(db *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// CreateSession inserts a new session row.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
        INSERT INTO sessions (id, user_id, expires_at)
        VALUES ($1, $2, $3)
    `
	if _, err := r.db.Exec(ctx, query, session.ID, session.UserID, session.ExpiresAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindSessionByID retrieves a session by its id.
func (r *PostgresSessionRepository) FindSessionByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	query := `SELECT id, user_id, expires_at, revoked_at FROM sessions WHERE id = $1`
	err := r.db.QueryRow(ctx, query, sessionID).
		Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.RevokedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// RevokeSession marks a session as revoked. Revoking an already revoked or
// unknown session is not an error.
func (r *PostgresSessionRepository) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	query := `UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`
	if _, err := r.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
