/**
 * @description
 * This package provides a client for interacting with the Dwolla API, the
 * payment-rail provider executing account-to-account money movement. It
 * encapsulates OAuth client-credentials authentication and the HAL-style
 * request/response handling Dwolla uses.
 *
 * Key features:
 * - Fetches and caches the OAuth access token, refreshing before expiry.
 * - Provides methods for the Dwolla operations the service consumes
 *   (customers, on-demand authorizations, funding sources, transfers).
 * - Recovers duplicate-resource errors by extracting the existing resource's
 *   URL from the error payload instead of failing the operation.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, net/url, sync, time: Standard Go libraries.
 * - The service's internal domain package for Dwolla API request/response models.
 */
package dwollaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/horizonfin/banking-service/internal/domain"
)

// APIError is a non-2xx response from Dwolla with its decoded error envelope.
type APIError struct {
	StatusCode int
	Body       domain.DwollaErrorBody
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dwolla API error: status %d, code %s: %s", e.StatusCode, e.Body.Code, e.Body.Message)
}

// IsDuplicateEmail reports whether err is Dwolla rejecting a customer
// creation because a customer with the same email already exists.
func IsDuplicateEmail(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, fieldErr := range apiErr.Body.Embedded.Errors {
		if fieldErr.Code == "Duplicate" && fieldErr.Path == "/email" {
			return true
		}
	}
	return false
}

// Client is a client for the Dwolla API.
type Client struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new Dwolla API client.
func NewClient(baseURL, key, secret string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateCustomer creates a personal verified customer and returns the new
// resource's URL from the Location header.
func (c *Client) CreateCustomer(ctx context.Context, customer domain.NewDwollaCustomer) (string, error) {
	return c.post(ctx, "/customers", customer)
}

// GetCustomer retrieves one customer by id.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*domain.DwollaCustomer, error) {
	var customer domain.DwollaCustomer
	if err := c.get(ctx, "/customers/"+customerID, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindCustomerByEmail lists customers and returns the one with a matching
// email, or nil if none exists. Used to recover from duplicate-email errors.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*domain.DwollaCustomer, error) {
	var resp domain.ListCustomersResponse
	query := "/customers?" + url.Values{"email": {email}}.Encode()
	if err := c.get(ctx, query, &resp); err != nil {
		return nil, err
	}

	for _, customer := range resp.Embedded.Customers {
		if strings.EqualFold(customer.Email, email) {
			return &customer, nil
		}
	}
	return nil, nil
}

// CustomerURL builds the resource URL for a customer id against the
// configured environment's base URL. Lookup responses carry only the id; this
// rebuilds the URL the creation path would have returned.
func (c *Client) CustomerURL(customerID string) string {
	return c.baseURL + "/customers/" + customerID
}

// CreateOnDemandAuthorization creates the authorization the funding-source
// creation must reference.
func (c *Client) CreateOnDemandAuthorization(ctx context.Context) (map[string]domain.HALLink, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/on-demand-authorizations", nil)
	if err != nil {
		return nil, err
	}

	var resp domain.OnDemandAuthorizationResponse
	if _, err := c.send(req, &resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

// CreateFundingSource attaches a processor token as a named funding source
// under a customer and returns the funding source URL. If Dwolla reports the
// funding source already exists, the existing resource's URL is extracted
// from the error payload and returned instead of an error.
func (c *Client) CreateFundingSource(ctx context.Context, customerID string, fs domain.CreateFundingSourceRequest) (string, error) {
	location, err := c.post(ctx, "/customers/"+customerID+"/funding-sources", fs)
	if err == nil {
		return location, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Body.Code == "DuplicateResource" {
		if about, ok := apiErr.Body.Links["about"]; ok && about.Href != "" {
			log.Printf("level=info component=dwollaclient msg=\"reusing existing funding source\" customer_id=%s url=%s", customerID, about.Href)
			return about.Href, nil
		}
	}
	return "", err
}

// CreateTransfer moves money between two funding source URLs and returns the
// transfer resource URL.
func (c *Client) CreateTransfer(ctx context.Context, sourceURL, destinationURL string, amount domain.DwollaAmount) (string, error) {
	req := domain.CreateTransferRequest{
		Links: map[string]domain.HALLink{
			"source":      {Href: sourceURL},
			"destination": {Href: destinationURL},
		},
		Amount: amount,
	}
	return c.post(ctx, "/transfers", req)
}

// post issues an authenticated POST and returns the Location header of the
// created resource.
func (c *Client) post(ctx context.Context, path string, body interface{}) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}

	resp, err := c.send(req, nil)
	if err != nil {
		return "", err
	}
	return resp.Header.Get("Location"), nil
}

// get issues an authenticated GET and decodes the response into target.
func (c *Client) get(ctx context.Context, path string, target interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, err = c.send(req, target)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.dwolla.v1.hal+json")
	req.Header.Set("Accept", "application/vnd.dwolla.v1.hal+json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) send(req *http.Request, target interface{}) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.Body); err != nil {
			log.Printf("level=warn component=dwollaclient msg=\"undecodable error body\" path=%s status=%d", req.URL.Path, resp.StatusCode)
		}
		return nil, apiErr
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}
	return resp, nil
}

// token returns a valid OAuth access token, fetching a fresh one via the
// client-credentials grant when the cached token is near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.key, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dwolla token endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// ExtractCustomerIDFromURL pulls the customer id out of a customer resource
// URL such as https://api-sandbox.dwolla.com/customers/<id>.
func ExtractCustomerIDFromURL(resourceURL string) string {
	parts := strings.Split(strings.TrimSuffix(resourceURL, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
