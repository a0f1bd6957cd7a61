/**
 * @description
 * This file contains the account aggregation core of the banking-service: the
 * logic that takes heterogeneous transaction data from the aggregation
 * provider and the internal ledger, merges them into a single chronological
 * view per account, and computes cross-account balance totals.
 *
 * @notes
 * - Aggregated views are recomputed on every read and never persisted.
 * - Read paths degrade silently: provider hard failures are logged and
 *   reported as absent data, only the consent-missing business condition is
 *   mapped to the relink signal.
 */
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/horizonfin/banking-service/internal/domain"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/horizonfin/banking-service/pkg/plaidclient"
	"github.com/shopspring/decimal"
)

// AggregatorClient is the subset of the Plaid client the services consume.
// Narrow on purpose so tests can substitute fakes.
type AggregatorClient interface {
	CreateLinkToken(ctx context.Context, clientUserID, clientName string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ExchangePublicTokenResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*domain.GetAccountsResponse, error)
	GetInstitutionByID(ctx context.Context, institutionID string) (*domain.Institution, error)
	GetTransactions(ctx context.Context, accessToken string) ([]domain.PlaidTransaction, error)
	CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error)
}

// AccountService produces aggregated account views and merged transaction
// histories for linked bank accounts.
type AccountService struct {
	bankRepo     store.BankLinkRepository
	transferRepo store.TransferRepository
	plaid        AggregatorClient
}

// NewAccountService creates a new instance of AccountService.
func NewAccountService(bankRepo store.BankLinkRepository, transferRepo store.TransferRepository, plaid AggregatorClient) *AccountService {
	return &AccountService{
		bankRepo:     bankRepo,
		transferRepo: transferRepo,
		plaid:        plaid,
	}
}

// GetAccounts resolves every bank link of a user into a live account view and
// sums their current balances. Provider calls for the links run concurrently;
// the fan-out is unbounded because a user holds at most a handful of links.
// A failing link is captured in Failed and does not abort the rest of the
// batch.
func (s *AccountService) GetAccounts(ctx context.Context, userID uuid.UUID) (*domain.AccountsSummary, error) {
	summary := &domain.AccountsSummary{
		Accounts:     []domain.Account{},
		TotalBalance: decimal.Zero,
	}
	if userID == uuid.Nil {
		return summary, nil
	}

	links, err := s.bankRepo.FindBankLinksByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank links: %w", err)
	}
	if len(links) == 0 {
		return summary, nil
	}

	accounts := make([]*domain.Account, len(links))
	var wg sync.WaitGroup
	for i := range links {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account, err := s.resolveAccountView(ctx, &links[i])
			if err != nil {
				log.Printf("level=warn component=account_service msg=\"account resolution failed\" bank_link_id=%s err=%v", links[i].ID, err)
				return
			}
			accounts[i] = account
		}(i)
	}
	wg.Wait()

	for i, account := range accounts {
		if account == nil {
			summary.Failed = append(summary.Failed, links[i].ID)
			continue
		}
		summary.Accounts = append(summary.Accounts, *account)
		summary.TotalBalance = summary.TotalBalance.Add(account.CurrentBalance)
	}
	summary.TotalAccounts = len(summary.Accounts)
	return summary, nil
}

// GetAccount resolves one bank link into its live account view plus the
// merged, date-descending transaction list spanning the provider's trailing
// window and all internal transfers touching the link.
//
// A consent-missing error from the provider is the normal signal that the
// user must relink: the result then carries only internal transfers and
// RequiresRelink set. Any other provider failure is logged and reported as
// (nil, nil); callers must treat the absence of data as a displayable
// "unavailable" state, not a crash.
func (s *AccountService) GetAccount(ctx context.Context, linkID uuid.UUID) (*domain.AccountDetail, error) {
	if linkID == uuid.Nil {
		return nil, store.ErrBankLinkNotFound
	}

	link, err := s.bankRepo.FindBankLinkByID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	account, err := s.resolveAccountView(ctx, link)
	if err != nil {
		log.Printf("level=error component=account_service msg=\"account snapshot failed\" bank_link_id=%s err=%v", link.ID, err)
		return nil, nil
	}

	transfers, err := s.transferRepo.FindTransfersByBankID(ctx, link.ID)
	if err != nil {
		log.Printf("level=error component=account_service msg=\"ledger read failed\" bank_link_id=%s err=%v", link.ID, err)
		return nil, nil
	}
	internal := make([]domain.Transaction, 0, len(transfers))
	for _, transfer := range transfers {
		internal = append(internal, transferToTransaction(transfer, link.ID))
	}

	detail := &domain.AccountDetail{Account: *account}

	external, err := s.plaid.GetTransactions(ctx, link.AccessToken)
	if err != nil {
		if !plaidclient.IsAdditionalConsentRequired(err) {
			log.Printf("level=error component=account_service msg=\"transaction fetch failed\" bank_link_id=%s err=%v", link.ID, err)
			return nil, nil
		}
		// Consent revoked for the transactions product: balances still work,
		// transactions do not. The UI drives the relink flow from this flag.
		detail.RequiresRelink = true
		external = nil
	}

	externalView := make([]domain.Transaction, 0, len(external))
	for _, tx := range external {
		externalView = append(externalView, plaidToTransaction(tx))
	}

	detail.Transactions = MergeTransactions(externalView, internal)
	return detail, nil
}

// resolveAccountView fetches the live snapshot for a link and resolves its
// institution metadata into an Account view.
func (s *AccountService) resolveAccountView(ctx context.Context, link *domain.BankLink) (*domain.Account, error) {
	snapshot, err := s.plaid.GetAccounts(ctx, link.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("provider account snapshot failed: %w", err)
	}
	if len(snapshot.Accounts) == 0 {
		return nil, fmt.Errorf("provider returned no accounts for item %s", link.PlaidItemID)
	}
	data := snapshot.Accounts[0]

	institutionID := snapshot.Item.InstitutionID
	if institution, err := s.plaid.GetInstitutionByID(ctx, institutionID); err != nil {
		// Institution metadata is decorative; a failed lookup keeps the raw id.
		log.Printf("level=warn component=account_service msg=\"institution lookup failed\" institution_id=%s err=%v", institutionID, err)
	} else {
		institutionID = institution.InstitutionID
	}

	return &domain.Account{
		ID:               data.AccountID,
		AvailableBalance: data.Balances.Available,
		CurrentBalance:   data.Balances.Current,
		InstitutionID:    institutionID,
		Name:             data.Name,
		OfficialName:     data.OfficialName,
		Mask:             data.Mask,
		Type:             data.Type,
		Subtype:          data.Subtype,
		BankLinkID:       link.ID,
		ShareableID:      link.ShareableID,
	}, nil
}

// MergeTransactions unions external and internal transactions into one list
// ordered by date, newest first. The sort is stable so ties keep their source
// order (external before internal).
func MergeTransactions(external, internal []domain.Transaction) []domain.Transaction {
	merged := make([]domain.Transaction, 0, len(external)+len(internal))
	merged = append(merged, external...)
	merged = append(merged, internal...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

// plaidToTransaction maps a provider transaction into the unified shape.
func plaidToTransaction(tx domain.PlaidTransaction) domain.Transaction {
	category := ""
	if tx.PersonalFinanceCategory != nil && tx.PersonalFinanceCategory.Primary != "" {
		category = tx.PersonalFinanceCategory.Primary
	} else if len(tx.Category) > 0 {
		category = tx.Category[0]
	}

	date, err := time.Parse("2006-01-02", tx.Date)
	if err != nil {
		log.Printf("level=warn component=account_service msg=\"unparseable transaction date\" transaction_id=%s date=%q", tx.TransactionID, tx.Date)
	}

	return domain.Transaction{
		ID:             tx.TransactionID,
		Name:           tx.Name,
		Amount:         tx.Amount,
		PaymentChannel: tx.PaymentChannel,
		Category:       category,
		Date:           date,
		Pending:        tx.Pending,
		Type:           tx.PaymentChannel,
		AccountID:      tx.AccountID,
		Image:          tx.LogoURL,
	}
}

// transferToTransaction maps an internal ledger row into the unified shape,
// tagged debit or credit relative to the given link.
func transferToTransaction(transfer domain.Transfer, linkID uuid.UUID) domain.Transaction {
	direction := domain.TransactionTypeCredit
	if transfer.SenderBankID == linkID {
		direction = domain.TransactionTypeDebit
	}
	return domain.Transaction{
		ID:             transfer.ID.String(),
		Name:           transfer.Name,
		Amount:         transfer.Amount,
		PaymentChannel: transfer.Channel,
		Category:       transfer.Category,
		Date:           transfer.CreatedAt,
		Type:           direction,
	}
}

// EncodeShareableID derives the opaque id other users address an account by.
func EncodeShareableID(accountID string) string {
	return base64.StdEncoding.EncodeToString([]byte(accountID))
}
