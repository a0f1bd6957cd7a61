package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
)

// In-memory repositories and function-field client stubs shared by the
// service tests in this package.

type memUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:   make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, store.ErrDuplicateEmail
	}
	stored := *user
	stored.ID = uuid.New()
	r.users[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	result := stored
	return &result, nil
}

func (r *memUserRepo) FindUserByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	result := *user
	return &result, nil
}

func (r *memUserRepo) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	result := *r.users[userID]
	return &result, nil
}

func (r *memUserRepo) UpdateDwollaCustomer(_ context.Context, userID uuid.UUID, customerID, customerURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	user.DwollaCustomerID = customerID
	user.DwollaCustomerURL = customerURL
	return nil
}

type memBankRepo struct {
	mu        sync.Mutex
	links     map[uuid.UUID]*domain.BankLink
	order     []uuid.UUID
	repairs   []domain.LinkRepair
	createErr error
}

func newMemBankRepo() *memBankRepo {
	return &memBankRepo{links: make(map[uuid.UUID]*domain.BankLink)}
}

func (r *memBankRepo) add(link domain.BankLink) domain.BankLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	stored := link
	r.links[stored.ID] = &stored
	r.order = append(r.order, stored.ID)
	return stored
}

func (r *memBankRepo) CreateBankLink(_ context.Context, link *domain.BankLink) (*domain.BankLink, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	stored := r.add(*link)
	return &stored, nil
}

func (r *memBankRepo) FindBankLinkByID(_ context.Context, linkID uuid.UUID) (*domain.BankLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[linkID]
	if !ok {
		return nil, store.ErrBankLinkNotFound
	}
	result := *link
	return &result, nil
}

func (r *memBankRepo) FindBankLinksByUserID(_ context.Context, userID uuid.UUID) ([]domain.BankLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var links []domain.BankLink
	for _, id := range r.order {
		if r.links[id].UserID == userID {
			links = append(links, *r.links[id])
		}
	}
	return links, nil
}

func (r *memBankRepo) FindBankLinkByShareableID(_ context.Context, shareableID string) (*domain.BankLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if r.links[id].ShareableID == shareableID {
			result := *r.links[id]
			return &result, nil
		}
	}
	return nil, store.ErrBankLinkNotFound
}

func (r *memBankRepo) RotateAccessToken(_ context.Context, linkID uuid.UUID, accessToken string) (*domain.BankLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[linkID]
	if !ok {
		return nil, store.ErrBankLinkNotFound
	}
	link.AccessToken = accessToken
	result := *link
	return &result, nil
}

func (r *memBankRepo) RecordLinkRepair(_ context.Context, repair *domain.LinkRepair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *repair
	stored.ID = uuid.New()
	r.repairs = append(r.repairs, stored)
	return nil
}

func (r *memBankRepo) ListUnresolvedLinkRepairs(_ context.Context, userID uuid.UUID) ([]domain.LinkRepair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var repairs []domain.LinkRepair
	for _, repair := range r.repairs {
		if repair.UserID == userID && !repair.Resolved {
			repairs = append(repairs, repair)
		}
	}
	return repairs, nil
}

type memTransferRepo struct {
	mu        sync.Mutex
	transfers []domain.Transfer
	createErr error
}

func (r *memTransferRepo) CreateTransfer(_ context.Context, transfer *domain.Transfer) (*domain.Transfer, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *transfer
	stored.ID = uuid.New()
	if stored.Channel == "" {
		stored.Channel = "online"
	}
	if stored.Category == "" {
		stored.Category = "Transfer"
	}
	r.transfers = append(r.transfers, stored)
	result := stored
	return &result, nil
}

func (r *memTransferRepo) FindTransfersByBankID(_ context.Context, bankID uuid.UUID) ([]domain.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []domain.Transfer
	for _, transfer := range r.transfers {
		if transfer.SenderBankID == bankID || transfer.ReceiverBankID == bankID {
			matches = append(matches, transfer)
		}
	}
	return matches, nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (r *memSessionRepo) CreateSession(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *session
	r.sessions[stored.ID] = &stored
	return nil
}

func (r *memSessionRepo) FindSessionByID(_ context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	result := *session
	return &result, nil
}

func (r *memSessionRepo) RevokeSession(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		revokedAt := session.ExpiresAt
		session.RevokedAt = &revokedAt
	}
	return nil
}

// stubAggregator implements AggregatorClient with per-method overrides.
// Unset methods return benign defaults.
type stubAggregator struct {
	createLinkTokenFn func(ctx context.Context, clientUserID, clientName string) (string, error)
	exchangeFn        func(ctx context.Context, publicToken string) (*domain.ExchangePublicTokenResponse, error)
	getAccountsFn     func(ctx context.Context, accessToken string) (*domain.GetAccountsResponse, error)
	getInstitutionFn  func(ctx context.Context, institutionID string) (*domain.Institution, error)
	getTransactionsFn func(ctx context.Context, accessToken string) ([]domain.PlaidTransaction, error)
	processorTokenFn  func(ctx context.Context, accessToken, accountID, processor string) (string, error)
}

func (s *stubAggregator) CreateLinkToken(ctx context.Context, clientUserID, clientName string) (string, error) {
	if s.createLinkTokenFn != nil {
		return s.createLinkTokenFn(ctx, clientUserID, clientName)
	}
	return "link-token-test", nil
}

func (s *stubAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ExchangePublicTokenResponse, error) {
	if s.exchangeFn != nil {
		return s.exchangeFn(ctx, publicToken)
	}
	return &domain.ExchangePublicTokenResponse{AccessToken: "access-" + publicToken, ItemID: "item-" + publicToken}, nil
}

func (s *stubAggregator) GetAccounts(ctx context.Context, accessToken string) (*domain.GetAccountsResponse, error) {
	if s.getAccountsFn != nil {
		return s.getAccountsFn(ctx, accessToken)
	}
	return &domain.GetAccountsResponse{
		Accounts: []domain.PlaidAccount{{AccountID: "acct-1", Name: "Checking", Type: "depository", Subtype: "checking"}},
		Item:     domain.PlaidItem{ItemID: "item-1", InstitutionID: "ins_1"},
	}, nil
}

func (s *stubAggregator) GetInstitutionByID(ctx context.Context, institutionID string) (*domain.Institution, error) {
	if s.getInstitutionFn != nil {
		return s.getInstitutionFn(ctx, institutionID)
	}
	return &domain.Institution{InstitutionID: institutionID, Name: "Test Bank"}, nil
}

func (s *stubAggregator) GetTransactions(ctx context.Context, accessToken string) ([]domain.PlaidTransaction, error) {
	if s.getTransactionsFn != nil {
		return s.getTransactionsFn(ctx, accessToken)
	}
	return nil, nil
}

func (s *stubAggregator) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	if s.processorTokenFn != nil {
		return s.processorTokenFn(ctx, accessToken, accountID, processor)
	}
	return "processor-token-test", nil
}

type railTransfer struct {
	sourceURL      string
	destinationURL string
	amount         domain.DwollaAmount
}

// stubRail implements PaymentRailClient with per-method overrides and records
// the transfers it was asked to execute.
type stubRail struct {
	mu               sync.Mutex
	baseURL          string
	createCustomerFn func(ctx context.Context, customer domain.NewDwollaCustomer) (string, error)
	getCustomerFn    func(ctx context.Context, customerID string) (*domain.DwollaCustomer, error)
	findCustomerFn   func(ctx context.Context, email string) (*domain.DwollaCustomer, error)
	authFn           func(ctx context.Context) (map[string]domain.HALLink, error)
	fundingSourceFn  func(ctx context.Context, customerID string, fs domain.CreateFundingSourceRequest) (string, error)
	createTransferFn func(ctx context.Context, sourceURL, destinationURL string, amount domain.DwollaAmount) (string, error)
	transfers        []railTransfer
}

func (s *stubRail) CreateCustomer(ctx context.Context, customer domain.NewDwollaCustomer) (string, error) {
	if s.createCustomerFn != nil {
		return s.createCustomerFn(ctx, customer)
	}
	return "https://api-sandbox.dwolla.com/customers/cust-new", nil
}

func (s *stubRail) GetCustomer(ctx context.Context, customerID string) (*domain.DwollaCustomer, error) {
	if s.getCustomerFn != nil {
		return s.getCustomerFn(ctx, customerID)
	}
	return &domain.DwollaCustomer{ID: customerID, Status: "verified"}, nil
}

func (s *stubRail) FindCustomerByEmail(ctx context.Context, email string) (*domain.DwollaCustomer, error) {
	if s.findCustomerFn != nil {
		return s.findCustomerFn(ctx, email)
	}
	return nil, nil
}

func (s *stubRail) CustomerURL(customerID string) string {
	base := s.baseURL
	if base == "" {
		base = "https://api-sandbox.dwolla.com"
	}
	return base + "/customers/" + customerID
}

func (s *stubRail) CreateOnDemandAuthorization(ctx context.Context) (map[string]domain.HALLink, error) {
	if s.authFn != nil {
		return s.authFn(ctx)
	}
	return map[string]domain.HALLink{
		"on-demand-authorization": {Href: "https://api-sandbox.dwolla.com/on-demand-authorizations/auth-1"},
	}, nil
}

func (s *stubRail) CreateFundingSource(ctx context.Context, customerID string, fs domain.CreateFundingSourceRequest) (string, error) {
	if s.fundingSourceFn != nil {
		return s.fundingSourceFn(ctx, customerID, fs)
	}
	return "https://api-sandbox.dwolla.com/funding-sources/fs-new", nil
}

func (s *stubRail) CreateTransfer(ctx context.Context, sourceURL, destinationURL string, amount domain.DwollaAmount) (string, error) {
	s.mu.Lock()
	s.transfers = append(s.transfers, railTransfer{sourceURL: sourceURL, destinationURL: destinationURL, amount: amount})
	s.mu.Unlock()
	if s.createTransferFn != nil {
		return s.createTransferFn(ctx, sourceURL, destinationURL, amount)
	}
	return "https://api-sandbox.dwolla.com/transfers/tr-new", nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type stubPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *stubPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, event := range p.events {
		keys = append(keys, event.routingKey)
	}
	return keys
}
