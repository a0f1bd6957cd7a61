/**
 * @description
 * This file defines the Go structs that map to the Dwolla API (HAL-style)
 * request and response payloads consumed by this service.
 */
package domain

// HALLink is a single link in a Dwolla `_links` object.
type HALLink struct {
	Href string `json:"href"`
}

// NewDwollaCustomer is the payload for creating a personal verified customer.
// The KYC fields are validated locally before submission.
type NewDwollaCustomer struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Type        string `json:"type"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

// DwollaCustomer is one customer as returned by GET /customers.
type DwollaCustomer struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}

// ListCustomersResponse is the embedded collection returned by GET /customers.
type ListCustomersResponse struct {
	Embedded struct {
		Customers []DwollaCustomer `json:"customers"`
	} `json:"_embedded"`
}

// CreateFundingSourceRequest attaches a Plaid processor token as a named
// funding source under a customer. Links carries the on-demand authorization.
type CreateFundingSourceRequest struct {
	Name       string             `json:"name"`
	PlaidToken string             `json:"plaidToken"`
	Links      map[string]HALLink `json:"_links,omitempty"`
}

// OnDemandAuthorizationResponse is the response of POST /on-demand-authorizations.
type OnDemandAuthorizationResponse struct {
	Links map[string]HALLink `json:"_links"`
	Body  string             `json:"bodyText"`
}

// DwollaAmount is the currency/value pair Dwolla uses for transfer amounts.
// Value is a decimal string, never a float.
type DwollaAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// CreateTransferRequest moves money between two funding source URLs.
type CreateTransferRequest struct {
	Links  map[string]HALLink `json:"_links"`
	Amount DwollaAmount       `json:"amount"`
}

// DwollaErrorBody is the error envelope Dwolla returns with non-2xx statuses.
// Duplicate-resource errors carry the existing resource under
// `_links.about.href`; validation errors carry entries under `_embedded`.
type DwollaErrorBody struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Links    map[string]HALLink `json:"_links"`
	Embedded struct {
		Errors []DwollaFieldError `json:"errors"`
	} `json:"_embedded"`
}

// DwollaFieldError is one field-level validation error.
type DwollaFieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
}
