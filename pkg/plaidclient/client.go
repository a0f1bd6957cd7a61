/**
 * @description
 * This package provides a client for interacting with the Plaid API, the
 * aggregation provider supplying bank account and transaction data. It
 * encapsulates the logic for making authenticated HTTP requests to Plaid's
 * endpoints.
 *
 * Key features:
 * - Manages the API base URL and client credentials.
 * - Provides methods for the Plaid operations the service consumes (link
 *   tokens, token exchange, accounts, institutions, transactions, processor
 *   tokens).
 * - Surfaces Plaid error codes as typed errors so callers can distinguish
 *   business conditions (missing transaction consent) from hard failures.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - The service's internal domain package for Plaid API request/response models.
 */
package plaidclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/horizonfin/banking-service/internal/domain"
)

// ErrorCodeAdditionalConsentRequired is the Plaid error code returned when
// the item's consent no longer covers the transactions product. This is the
// signal that drives the relink flow.
const ErrorCodeAdditionalConsentRequired = "ADDITIONAL_CONSENT_REQUIRED"

// Transaction window and page size used by GetTransactions.
const (
	transactionWindowDays = 30
	transactionPageSize   = 100
)

// APIError is a non-2xx response from Plaid with its decoded error envelope.
type APIError struct {
	StatusCode int
	Body       domain.PlaidErrorBody
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid API error: status %d, code %s: %s", e.StatusCode, e.Body.ErrorCode, e.Body.ErrorMessage)
}

// IsAdditionalConsentRequired reports whether err is Plaid telling us the
// stored credential can no longer read transactions and the user must relink.
func IsAdditionalConsentRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Body.ErrorCode == ErrorCodeAdditionalConsentRequired
}

// Client is a client for the Plaid API.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

// NewClient creates a new Plaid API client.
func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateLinkToken creates a short-lived token that initializes the embedded
// linking widget, for both first-time linking and relinking.
func (c *Client) CreateLinkToken(ctx context.Context, clientUserID, clientName string) (string, error) {
	req := domain.CreateLinkTokenRequest{
		ClientID:     c.clientID,
		Secret:       c.secret,
		User:         domain.LinkTokenUser{ClientUserID: clientUserID},
		ClientName:   clientName,
		Products:     []string{"auth", "transactions"},
		Language:     "en",
		CountryCodes: []string{"US"},
	}

	var resp domain.CreateLinkTokenResponse
	if err := c.do(ctx, "/link/token/create", req, &resp); err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken exchanges the widget's short-lived public token for a
// long-lived access token and the item id it is bound to.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ExchangePublicTokenResponse, error) {
	req := domain.ExchangePublicTokenRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		PublicToken: publicToken,
	}

	var resp domain.ExchangePublicTokenResponse
	if err := c.do(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccounts fetches the live account snapshot for an access token.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*domain.GetAccountsResponse, error) {
	req := domain.GetAccountsRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
	}

	var resp domain.GetAccountsResponse
	if err := c.do(ctx, "/accounts/get", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetInstitutionByID fetches institution metadata.
func (c *Client) GetInstitutionByID(ctx context.Context, institutionID string) (*domain.Institution, error) {
	req := domain.GetInstitutionRequest{
		ClientID:      c.clientID,
		Secret:        c.secret,
		InstitutionID: institutionID,
		CountryCodes:  []string{"US"},
	}

	var resp domain.GetInstitutionResponse
	if err := c.do(ctx, "/institutions/get_by_id", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Institution, nil
}

// GetTransactions fetches every transaction in the trailing 30-day window,
// following the offset pagination until total_transactions is reached so a
// busy account does not silently lose activity past the first page.
func (c *Client) GetTransactions(ctx context.Context, accessToken string) ([]domain.PlaidTransaction, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -transactionWindowDays).Format("2006-01-02")
	end := now.Format("2006-01-02")

	var transactions []domain.PlaidTransaction
	offset := 0
	for {
		req := domain.GetTransactionsRequest{
			ClientID:    c.clientID,
			Secret:      c.secret,
			AccessToken: accessToken,
			StartDate:   start,
			EndDate:     end,
			Options: domain.TransactionsOptions{
				Count:                          transactionPageSize,
				Offset:                         offset,
				IncludePersonalFinanceCategory: true,
			},
		}

		var resp domain.GetTransactionsResponse
		if err := c.do(ctx, "/transactions/get", req, &resp); err != nil {
			return nil, err
		}

		transactions = append(transactions, resp.Transactions...)
		offset += len(resp.Transactions)
		if offset >= resp.TotalTransactions || len(resp.Transactions) == 0 {
			return transactions, nil
		}
	}
}

// CreateProcessorToken creates a processor-scoped token that lets the
// payment-rail provider address the account.
func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	req := domain.CreateProcessorTokenRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		AccountID:   accountID,
		Processor:   processor,
	}

	var resp domain.CreateProcessorTokenResponse
	if err := c.do(ctx, "/processor/token/create", req, &resp); err != nil {
		return "", err
	}
	return resp.ProcessorToken, nil
}

// do is a helper function to make HTTP requests to the Plaid API.
func (c *Client) do(ctx context.Context, path string, body, target interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.Body); err != nil {
			log.Printf("level=warn component=plaidclient msg=\"undecodable error body\" path=%s status=%d", path, resp.StatusCode)
		}
		return apiErr
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}

	return nil
}
