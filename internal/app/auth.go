/**
 * @description
 * This file contains the session/identity logic: sign-up (which also creates
 * the payment-rail customer), email+password sign-in issuing a persisted
 * session with a JWT handle, and sign-out revoking the session server-side.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Session token signing and parsing.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/horizonfin/banking-service/pkg/dwollaclient"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned for a wrong email or password. The two
	// cases are indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionExpired is returned for an expired or revoked session.
	ErrSessionExpired = errors.New("session expired or revoked")
)

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// AuthService manages users and their login sessions.
type AuthService struct {
	userRepo    store.UserRepository
	sessionRepo store.SessionRepository
	dwolla      PaymentRailClient
	jwtSecret   []byte
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo store.UserRepository, sessionRepo store.SessionRepository, dwolla PaymentRailClient, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		dwolla:      dwolla,
		jwtSecret:   []byte(jwtSecret),
	}
}

// SignUp registers a new user. The payment-rail customer is created up front
// so money movement works as soon as the first bank account is linked; a
// duplicate-email rejection at the provider reuses the existing customer.
func (s *AuthService) SignUp(ctx context.Context, params domain.SignUpParams) (*domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || params.Password == "" {
		return nil, "", errors.New("email and password are required")
	}
	if len(params.Password) < 8 {
		return nil, "", errors.New("password must be at least 8 characters")
	}

	customer := domain.NewDwollaCustomer{
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       email,
		Type:        "personal",
		Address1:    params.Address1,
		City:        params.City,
		State:       params.State,
		PostalCode:  params.PostalCode,
		DateOfBirth: params.DateOfBirth,
		SSN:         params.SSN,
	}
	if err := ValidateCustomer(customer); err != nil {
		return nil, "", err
	}

	customerURL, err := createOrReuseCustomer(ctx, s.dwolla, customer)
	if err != nil {
		return nil, "", err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:             email,
		PasswordHash:      string(passwordHash),
		FirstName:         params.FirstName,
		LastName:          params.LastName,
		Address1:          params.Address1,
		City:              params.City,
		State:             params.State,
		PostalCode:        params.PostalCode,
		DateOfBirth:       params.DateOfBirth,
		SSN:               params.SSN,
		DwollaCustomerID:  dwollaclient.ExtractCustomerIDFromURL(customerURL),
		DwollaCustomerURL: customerURL,
	}
	user, err = s.userRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, "", err
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn verifies the email+password pair and issues a new session token.
func (s *AuthService) SignIn(ctx context.Context, params domain.SignInParams) (*domain.User, string, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignOut revokes the session behind a token. An unparseable token is treated
// as already signed out.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	sessionID, _, err := s.parseToken(token)
	if err != nil {
		log.Printf("level=warn component=auth_service msg=\"sign-out with unparseable token\" err=%v", err)
		return nil
	}
	return s.sessionRepo.RevokeSession(ctx, sessionID)
}

// Authenticate resolves a session token into the logged-in user, rejecting
// revoked and expired sessions.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	sessionID, userID, err := s.parseToken(token)
	if err != nil {
		return nil, ErrSessionExpired
	}

	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionExpired
	}
	if session.RevokedAt != nil || time.Now().After(session.ExpiresAt) || session.UserID != userID {
		return nil, ErrSessionExpired
	}

	return s.userRepo.FindUserByID(ctx, userID)
}

func (s *AuthService) createSession(ctx context.Context, userID uuid.UUID) (string, error) {
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return "", err
	}

	claims := SessionClaims{
		SessionID: session.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (s *AuthService) parseToken(token string) (sessionID, userID uuid.UUID, err error) {
	var claims SessionClaims
	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	sessionID, err = uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid session id claim: %w", err)
	}
	userID, err = uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return sessionID, userID, nil
}
