package dwollaclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/horizonfin/banking-service/internal/domain"
)

// newTestServer wraps handler with a /token endpoint so client auth succeeds.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			t.Fatal("token request missing basic auth")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)
	return httptest.NewServer(mux)
}

func TestCreateFundingSource_ReturnsLocationOnSuccess(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers/cust-1/funding-sources" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		w.Header().Set("Location", "https://api-sandbox.dwolla.com/funding-sources/fs-1")
		w.WriteHeader(http.StatusCreated)
	})
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	location, err := client.CreateFundingSource(context.Background(), "cust-1", domain.CreateFundingSourceRequest{
		Name:       "Chase Checking",
		PlaidToken: "processor-token",
	})
	if err != nil {
		t.Fatalf("CreateFundingSource returned error: %v", err)
	}
	if location != "https://api-sandbox.dwolla.com/funding-sources/fs-1" {
		t.Fatalf("unexpected location %q", location)
	}
}

func TestCreateFundingSource_ReusesExistingOnDuplicate(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(domain.DwollaErrorBody{
			Code:    "DuplicateResource",
			Message: "Bank already exists",
			Links: map[string]domain.HALLink{
				"about": {Href: "https://api-sandbox.dwolla.com/funding-sources/fs-existing"},
			},
		})
	})
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	location, err := client.CreateFundingSource(context.Background(), "cust-1", domain.CreateFundingSourceRequest{
		Name:       "Chase Checking",
		PlaidToken: "processor-token",
	})
	if err != nil {
		t.Fatalf("duplicate funding source must not surface as error, got %v", err)
	}
	if location != "https://api-sandbox.dwolla.com/funding-sources/fs-existing" {
		t.Fatalf("expected existing funding source URL, got %q", location)
	}
}

func TestCreateCustomer_DuplicateEmailIsDetectable(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		body := domain.DwollaErrorBody{Code: "ValidationError", Message: "Validation error(s) present."}
		body.Embedded.Errors = []domain.DwollaFieldError{
			{Code: "Duplicate", Message: "A customer with the specified email already exists.", Path: "/email"},
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	_, err := client.CreateCustomer(context.Background(), domain.NewDwollaCustomer{Email: "jane@example.com"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsDuplicateEmail(err) {
		t.Fatalf("expected duplicate-email detection, got %v", err)
	}
}

func TestFindCustomerByEmail_MatchesCaseInsensitively(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var resp domain.ListCustomersResponse
		resp.Embedded.Customers = []domain.DwollaCustomer{
			{ID: "cust-a", Email: "other@example.com"},
			{ID: "cust-b", Email: "Jane@Example.com"},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	customer, err := client.FindCustomerByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("FindCustomerByEmail returned error: %v", err)
	}
	if customer == nil || customer.ID != "cust-b" {
		t.Fatalf("expected customer cust-b, got %+v", customer)
	}

	missing, err := client.FindCustomerByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("FindCustomerByEmail returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown email, got %+v", missing)
	}
}

func TestCustomerURL_FollowsConfiguredBase(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "sandbox",
			baseURL: "https://api-sandbox.dwolla.com",
			want:    "https://api-sandbox.dwolla.com/customers/abc-123",
		},
		{
			name:    "production",
			baseURL: "https://api.dwolla.com",
			want:    "https://api.dwolla.com/customers/abc-123",
		},
		{
			name:    "trailing slash",
			baseURL: "https://api.dwolla.com/",
			want:    "https://api.dwolla.com/customers/abc-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.baseURL, "key", "secret")
			if got := client.CustomerURL("abc-123"); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractCustomerIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "plain customer url",
			url:  "https://api-sandbox.dwolla.com/customers/abc-123",
			want: "abc-123",
		},
		{
			name: "trailing slash",
			url:  "https://api-sandbox.dwolla.com/customers/abc-123/",
			want: "abc-123",
		},
		{
			name: "empty string",
			url:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCustomerIDFromURL(tt.url); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
