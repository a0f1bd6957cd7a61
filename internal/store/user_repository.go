/**
 * @description
 * This file implements the data access layer for user records.
 *
 * @dependencies
 * - context: For managing request-scoped deadlines and cancellations.
 * - github.com/jackc/pgx/v5/pgxpool: The PostgreSQL driver.
 * - The service's internal domain package for the User model.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository is the PostgreSQL implementation of the UserRepository.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new instance of PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser inserts a new user record into the database.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO users (email, password_hash, first_name, last_name, address1, city, state, postal_code, date_of_birth, ssn, dwolla_customer_id, dwolla_customer_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Address1,
		user.City,
		user.State,
		user.PostalCode,
		user.DateOfBirth,
		user.SSN,
		user.DwollaCustomerID,
		user.DwollaCustomerURL,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation on the email index
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by their internal id.
func (r *PostgresUserRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `
        SELECT id, email, password_hash, first_name, last_name, address1, city, state, postal_code, date_of_birth, ssn, dwolla_customer_id, dwolla_customer_url, created_at
        FROM users
        WHERE id = $1
    `
	return r.scanUser(r.db.QueryRow(ctx, query, userID))
}

// FindUserByEmail retrieves a user by their email address.
func (r *PostgresUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
        SELECT id, email, password_hash, first_name, last_name, address1, city, state, postal_code, date_of_birth, ssn, dwolla_customer_id, dwolla_customer_url, created_at
        FROM users
        WHERE email = lower(btrim($1))
    `
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// UpdateDwollaCustomer stores the payment-rail customer reference on the user
// record after a successful (or recovered duplicate) customer creation.
func (r *PostgresUserRepository) UpdateDwollaCustomer(ctx context.Context, userID uuid.UUID, customerID, customerURL string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET dwolla_customer_id = $2, dwolla_customer_url = $3 WHERE id = $1`,
		userID, customerID, customerURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update dwolla customer reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Address1,
		&user.City,
		&user.State,
		&user.PostalCode,
		&user.DateOfBirth,
		&user.SSN,
		&user.DwollaCustomerID,
		&user.DwollaCustomerURL,
		&user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
