/**
 * @description
 * This file defines the user domain model and the input payloads for the
 * sign-up and sign-in flows.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered end user of the application.
type User struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Address1          string    `json:"address1"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	PostalCode        string    `json:"postal_code"`
	DateOfBirth       string    `json:"date_of_birth"`
	SSN               string    `json:"-"`
	DwollaCustomerID  string    `json:"dwolla_customer_id"`
	DwollaCustomerURL string    `json:"dwolla_customer_url"`
	CreatedAt         time.Time `json:"created_at"`
}

// SignUpParams is the payload accepted by the sign-up endpoint.
type SignUpParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	DateOfBirth string `json:"date_of_birth"`
	SSN         string `json:"ssn"`
}

// SignInParams is the payload accepted by the sign-in endpoint.
type SignInParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a server-side login session. Sessions are persisted so that
// sign-out revokes the token even before it expires.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
}
