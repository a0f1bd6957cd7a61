/**
 * @description
 * This file defines the Go structs that map to the Plaid API request and
 * response payloads consumed by this service.
 *
 * @notes
 * - Only the fields the service reads are modeled; Plaid returns much more.
 * - Amounts and balances deserialize into shopspring decimals so arithmetic
 *   on money never goes through binary floats.
 */
package domain

import "github.com/shopspring/decimal"

// --- Link Token ---

// LinkTokenUser identifies the end user to Plaid when creating a link token.
type LinkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

// CreateLinkTokenRequest is the payload for POST /link/token/create.
type CreateLinkTokenRequest struct {
	ClientID     string        `json:"client_id"`
	Secret       string        `json:"secret"`
	User         LinkTokenUser `json:"user"`
	ClientName   string        `json:"client_name"`
	Products     []string      `json:"products"`
	Language     string        `json:"language"`
	CountryCodes []string      `json:"country_codes"`
}

// CreateLinkTokenResponse carries the short-lived token the embedded linking
// widget is initialized with.
type CreateLinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

// --- Public Token Exchange ---

// ExchangePublicTokenRequest is the payload for POST /item/public_token/exchange.
type ExchangePublicTokenRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

// ExchangePublicTokenResponse carries the long-lived access token and the
// item id the token is bound to.
type ExchangePublicTokenResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// --- Accounts ---

// GetAccountsRequest is the payload for POST /accounts/get.
type GetAccountsRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

// PlaidBalances holds the balance snapshot of a Plaid account.
type PlaidBalances struct {
	Available decimal.Decimal `json:"available"`
	Current   decimal.Decimal `json:"current"`
}

// PlaidAccount is one account as returned by /accounts/get.
type PlaidAccount struct {
	AccountID    string        `json:"account_id"`
	Balances     PlaidBalances `json:"balances"`
	Name         string        `json:"name"`
	OfficialName string        `json:"official_name"`
	Mask         string        `json:"mask"`
	Type         string        `json:"type"`
	Subtype      string        `json:"subtype"`
}

// PlaidItem is the item metadata returned alongside accounts.
type PlaidItem struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

// GetAccountsResponse is the response of POST /accounts/get.
type GetAccountsResponse struct {
	Accounts []PlaidAccount `json:"accounts"`
	Item     PlaidItem      `json:"item"`
}

// --- Institutions ---

// GetInstitutionRequest is the payload for POST /institutions/get_by_id.
type GetInstitutionRequest struct {
	ClientID      string   `json:"client_id"`
	Secret        string   `json:"secret"`
	InstitutionID string   `json:"institution_id"`
	CountryCodes  []string `json:"country_codes"`
}

// Institution is the subset of institution metadata the service uses.
type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

// GetInstitutionResponse is the response of POST /institutions/get_by_id.
type GetInstitutionResponse struct {
	Institution Institution `json:"institution"`
}

// --- Transactions ---

// TransactionsOptions carries the pagination window for /transactions/get.
type TransactionsOptions struct {
	Count                          int  `json:"count"`
	Offset                         int  `json:"offset"`
	IncludePersonalFinanceCategory bool `json:"include_personal_finance_category"`
}

// GetTransactionsRequest is the payload for POST /transactions/get.
type GetTransactionsRequest struct {
	ClientID    string              `json:"client_id"`
	Secret      string              `json:"secret"`
	AccessToken string              `json:"access_token"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Options     TransactionsOptions `json:"options"`
}

// PersonalFinanceCategory is Plaid's enriched category pair.
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// PlaidTransaction is one transaction as returned by /transactions/get.
type PlaidTransaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Name                    string                   `json:"name"`
	Amount                  decimal.Decimal          `json:"amount"`
	PaymentChannel          string                   `json:"payment_channel"`
	Category                []string                 `json:"category"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
	Date                    string                   `json:"date"`
	Pending                 bool                     `json:"pending"`
	LogoURL                 string                   `json:"logo_url"`
}

// GetTransactionsResponse is the response of POST /transactions/get.
// TotalTransactions is the full count in the window, which can exceed the
// page returned; callers paginate with Options.Offset until they have it all.
type GetTransactionsResponse struct {
	Accounts          []PlaidAccount     `json:"accounts"`
	Transactions      []PlaidTransaction `json:"transactions"`
	TotalTransactions int                `json:"total_transactions"`
}

// --- Processor Token ---

// CreateProcessorTokenRequest is the payload for POST /processor/token/create.
type CreateProcessorTokenRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	Processor   string `json:"processor"`
}

// CreateProcessorTokenResponse carries the processor token handed to the
// payment-rail provider.
type CreateProcessorTokenResponse struct {
	ProcessorToken string `json:"processor_token"`
}

// PlaidErrorBody is the error envelope Plaid returns with non-2xx statuses.
type PlaidErrorBody struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
