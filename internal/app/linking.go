/**
 * @description
 * This file contains the linking workflow: exchanging the widget's public
 * token for a long-lived credential, bridging the linked account into the
 * payment-rail provider as a funding source, and the relink flow that rotates
 * a revoked credential in place.
 *
 * @notes
 * - Linking is a write path: failures are returned to the caller instead of
 *   being swallowed. Partial work that already committed on the provider side
 *   (e.g. a customer created before a later step failed) is captured as a
 *   link_repairs record for reconciliation.
 */
package app

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/horizonfin/banking-service/pkg/dwollaclient"
	"github.com/horizonfin/banking-service/pkg/rabbitmq"
)

// PaymentRailClient is the subset of the Dwolla client the services consume.
type PaymentRailClient interface {
	CreateCustomer(ctx context.Context, customer domain.NewDwollaCustomer) (string, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.DwollaCustomer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*domain.DwollaCustomer, error)
	CustomerURL(customerID string) string
	CreateOnDemandAuthorization(ctx context.Context) (map[string]domain.HALLink, error)
	CreateFundingSource(ctx context.Context, customerID string, fs domain.CreateFundingSourceRequest) (string, error)
	CreateTransfer(ctx context.Context, sourceURL, destinationURL string, amount domain.DwollaAmount) (string, error)
}

// EventPublisher is the narrow publishing interface the services consume.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// LinkingService orchestrates bank linking, funding-source creation, and
// credential rotation.
type LinkingService struct {
	userRepo  store.UserRepository
	bankRepo  store.BankLinkRepository
	plaid     AggregatorClient
	dwolla    PaymentRailClient
	publisher EventPublisher
}

// NewLinkingService creates a new instance of LinkingService.
func NewLinkingService(userRepo store.UserRepository, bankRepo store.BankLinkRepository, plaid AggregatorClient, dwolla PaymentRailClient, publisher EventPublisher) *LinkingService {
	return &LinkingService{
		userRepo:  userRepo,
		bankRepo:  bankRepo,
		plaid:     plaid,
		dwolla:    dwolla,
		publisher: publisher,
	}
}

// CreateLinkToken requests a linking-session token for the embedded widget.
// The same token kind serves first-time linking and relinking.
func (s *LinkingService) CreateLinkToken(ctx context.Context, user *domain.User) (string, error) {
	clientName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	token, err := s.plaid.CreateLinkToken(ctx, user.ID.String(), clientName)
	if err != nil {
		return "", fmt.Errorf("failed to create link token: %w", err)
	}
	return token, nil
}

// ExchangePublicToken runs the full linking flow for a user: ensure a
// payment-rail customer exists, exchange the public token, bridge the account
// into the payment rail as a funding source, and persist the bank link.
func (s *LinkingService) ExchangePublicToken(ctx context.Context, publicToken string, user *domain.User) (*domain.BankLink, error) {
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	exchange, err := s.plaid.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, fmt.Errorf("public token exchange failed: %w", err)
	}

	snapshot, err := s.plaid.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("account snapshot after exchange failed: %w", err)
	}
	if len(snapshot.Accounts) == 0 {
		return nil, fmt.Errorf("provider returned no accounts for item %s", exchange.ItemID)
	}
	account := snapshot.Accounts[0]

	processorToken, err := s.plaid.CreateProcessorToken(ctx, exchange.AccessToken, account.AccountID, "dwolla")
	if err != nil {
		return nil, fmt.Errorf("processor token creation failed: %w", err)
	}

	fundingSourceURL, err := s.addFundingSource(ctx, customerID, processorToken, account.Name)
	if err != nil {
		s.recordRepair(ctx, user.ID, domain.RepairStageCustomerCreated, user.DwollaCustomerURL)
		return nil, err
	}

	link := &domain.BankLink{
		UserID:           user.ID,
		PlaidItemID:      exchange.ItemID,
		PlaidAccountID:   account.AccountID,
		AccessToken:      exchange.AccessToken,
		FundingSourceURL: fundingSourceURL,
		ShareableID:      EncodeShareableID(account.AccountID),
	}
	link, err = s.bankRepo.CreateBankLink(ctx, link)
	if err != nil {
		s.recordRepair(ctx, user.ID, domain.RepairStageFundingSourceCreated, fundingSourceURL)
		return nil, fmt.Errorf("failed to persist bank link: %w", err)
	}

	if pubErr := s.publisher.Publish(ctx, rabbitmq.BankEventsExchange, rabbitmq.RoutingKeyBankLinked, domain.BankLinkedEvent{
		UserID:     user.ID,
		BankLinkID: link.ID,
		ItemID:     link.PlaidItemID,
		Timestamp:  time.Now().UTC(),
	}); pubErr != nil {
		log.Printf("level=warn component=linking_service msg=\"bank.linked publish failed\" bank_link_id=%s err=%v", link.ID, pubErr)
	}
	return link, nil
}

// Relink exchanges a fresh public token and rotates the stored credential of
// an existing bank link in place. The link's id, funding source and shareable
// id are preserved; only the credential changes.
func (s *LinkingService) Relink(ctx context.Context, linkID uuid.UUID, publicToken string) (*domain.BankLink, error) {
	if _, err := s.bankRepo.FindBankLinkByID(ctx, linkID); err != nil {
		return nil, err
	}

	exchange, err := s.plaid.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, fmt.Errorf("public token exchange failed: %w", err)
	}

	link, err := s.bankRepo.RotateAccessToken(ctx, linkID, exchange.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate access token: %w", err)
	}

	if pubErr := s.publisher.Publish(ctx, rabbitmq.BankEventsExchange, rabbitmq.RoutingKeyBankRelinked, domain.BankRelinkedEvent{
		BankLinkID: link.ID,
		Timestamp:  time.Now().UTC(),
	}); pubErr != nil {
		log.Printf("level=warn component=linking_service msg=\"bank.relinked publish failed\" bank_link_id=%s err=%v", link.ID, pubErr)
	}
	return link, nil
}

// ensureCustomer returns the user's payment-rail customer id, creating the
// customer first if the user does not have one yet. A duplicate-email
// rejection is recovered by looking up the existing customer and reusing it.
func (s *LinkingService) ensureCustomer(ctx context.Context, user *domain.User) (string, error) {
	if strings.TrimSpace(user.DwollaCustomerID) != "" {
		return user.DwollaCustomerID, nil
	}

	customer := domain.NewDwollaCustomer{
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Type:        "personal",
		Address1:    user.Address1,
		City:        user.City,
		State:       user.State,
		PostalCode:  user.PostalCode,
		DateOfBirth: user.DateOfBirth,
		SSN:         user.SSN,
	}
	if err := ValidateCustomer(customer); err != nil {
		return "", err
	}

	customerURL, err := createOrReuseCustomer(ctx, s.dwolla, customer)
	if err != nil {
		return "", err
	}

	customerID := dwollaclient.ExtractCustomerIDFromURL(customerURL)
	if err := s.userRepo.UpdateDwollaCustomer(ctx, user.ID, customerID, customerURL); err != nil {
		s.recordRepair(ctx, user.ID, domain.RepairStageCustomerCreated, customerURL)
		return "", fmt.Errorf("failed to persist customer reference: %w", err)
	}

	user.DwollaCustomerID = customerID
	user.DwollaCustomerURL = customerURL
	return customerID, nil
}

// addFundingSource attaches the processor token as a named funding source
// under the customer, creating the on-demand authorization it references.
func (s *LinkingService) addFundingSource(ctx context.Context, customerID, processorToken, bankName string) (string, error) {
	if _, err := s.dwolla.GetCustomer(ctx, customerID); err != nil {
		return "", fmt.Errorf("customer %s not found at payment-rail provider: %w", customerID, err)
	}

	authLinks, err := s.dwolla.CreateOnDemandAuthorization(ctx)
	if err != nil {
		return "", fmt.Errorf("on-demand authorization failed: %w", err)
	}

	fundingSourceURL, err := s.dwolla.CreateFundingSource(ctx, customerID, domain.CreateFundingSourceRequest{
		Name:       bankName,
		PlaidToken: processorToken,
		Links:      authLinks,
	})
	if err != nil {
		return "", fmt.Errorf("funding source creation failed: %w", err)
	}
	return fundingSourceURL, nil
}

// OutstandingRepairs lists a user's unresolved compensation records, so the
// orphaned provider resources left by partially completed linking work can be
// reconciled.
func (s *LinkingService) OutstandingRepairs(ctx context.Context, userID uuid.UUID) ([]domain.LinkRepair, error) {
	repairs, err := s.bankRepo.ListUnresolvedLinkRepairs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load link repairs: %w", err)
	}
	return repairs, nil
}

// createOrReuseCustomer creates the payment-rail customer, recovering a
// duplicate-email rejection by looking up the existing customer and
// rebuilding its resource URL against the client's configured environment.
func createOrReuseCustomer(ctx context.Context, rail PaymentRailClient, customer domain.NewDwollaCustomer) (string, error) {
	customerURL, err := rail.CreateCustomer(ctx, customer)
	if err == nil {
		return customerURL, nil
	}
	if !dwollaclient.IsDuplicateEmail(err) {
		return "", fmt.Errorf("customer creation failed: %w", err)
	}

	existing, findErr := rail.FindCustomerByEmail(ctx, customer.Email)
	if findErr != nil || existing == nil {
		return "", fmt.Errorf("customer exists but lookup by email failed: %w", err)
	}
	log.Printf("level=info component=linking_service msg=\"reusing existing customer\" customer_id=%s", existing.ID)
	return rail.CustomerURL(existing.ID), nil
}

// recordRepair persists a compensation record; a failure here is logged, not
// returned, so it never masks the original error.
func (s *LinkingService) recordRepair(ctx context.Context, userID uuid.UUID, stage, detail string) {
	repair := &domain.LinkRepair{UserID: userID, Stage: stage, Detail: detail}
	if err := s.bankRepo.RecordLinkRepair(ctx, repair); err != nil {
		log.Printf("level=error component=linking_service msg=\"failed to record link repair\" user_id=%s stage=%s err=%v", userID, stage, err)
	}
}

var (
	dateOfBirthPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	ssnPattern         = regexp.MustCompile(`^\d{9}$`)
)

// ValidateCustomer checks the KYC fields for presence and format before they
// are submitted to the payment-rail provider.
func ValidateCustomer(customer domain.NewDwollaCustomer) error {
	var problems []string

	required := []struct {
		name  string
		value string
	}{
		{"firstName", customer.FirstName},
		{"lastName", customer.LastName},
		{"email", customer.Email},
		{"type", customer.Type},
		{"address1", customer.Address1},
		{"city", customer.City},
		{"state", customer.State},
		{"postalCode", customer.PostalCode},
		{"dateOfBirth", customer.DateOfBirth},
		{"ssn", customer.SSN},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			problems = append(problems, field.name+" is required")
		}
	}

	if customer.State != "" && len(customer.State) != 2 {
		problems = append(problems, "state must be a 2-letter abbreviation")
	}
	if customer.DateOfBirth != "" && !dateOfBirthPattern.MatchString(customer.DateOfBirth) {
		problems = append(problems, "dateOfBirth must be in YYYY-MM-DD format")
	}
	if customer.SSN != "" && !ssnPattern.MatchString(customer.SSN) {
		problems = append(problems, "ssn must be 9 digits")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid customer data: %s", strings.Join(problems, ", "))
	}
	return nil
}
