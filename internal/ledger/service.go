package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletBalanceReader reads the cached wallet balance stored on a user record
type WalletBalanceReader interface {
	WalletBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// Service is the read side of the ledger: entry lookup, trial balance and
// wallet reconciliation. Writes go through Writer inside a unit of work.
type Service struct {
	store   Store
	wallets WalletBalanceReader
}

// NewService creates a new ledger read service
func NewService(store Store, wallets WalletBalanceReader) *Service {
	return &Service{
		store:   store,
		wallets: wallets,
	}
}

// GetEntry retrieves an entry with its lines
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// ListEntries lists entries matching filter, newest first
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListEntries(ctx, filter)
}

// TrialBalance lists every account's debit and credit totals
type TrialBalance struct {
	Accounts    []*AccountBalance
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// IsBalanced reports whether total debits equal total credits
func (t *TrialBalance) IsBalanced() bool {
	return t.TotalDebit.Equal(t.TotalCredit)
}

// TrialBalance computes the trial balance. An unbalanced result means an entry
// bypassed the writer and is returned together with ErrUnbalancedEntry.
func (s *Service) TrialBalance(ctx context.Context) (*TrialBalance, error) {
	balances, err := s.store.AccountBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load account balances: %w", err)
	}

	tb := &TrialBalance{
		Accounts:    balances,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, b := range balances {
		tb.TotalDebit = tb.TotalDebit.Add(b.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(b.Credit)
	}

	if !tb.IsBalanced() {
		return tb, ErrUnbalancedEntry.Explain("trial balance off: debits %s, credits %s", tb.TotalDebit, tb.TotalCredit)
	}
	return tb, nil
}

// ReconcileWallet verifies that the balance cached on the user record matches
// the credit balance of the user's wallet account
func (s *Service) ReconcileWallet(ctx context.Context, userID uuid.UUID) error {
	cached, err := s.wallets.WalletBalance(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read wallet balance: %w", err)
	}

	ledgerBalance := decimal.Zero
	account, err := s.store.GetAccountByKey(ctx, WalletKey(userID))
	switch {
	case errors.Is(err, ErrAccountNotFound):
		// no postings yet
	case err != nil:
		return fmt.Errorf("failed to get wallet account: %w", err)
	default:
		balance, err := s.store.AccountBalance(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("failed to get wallet account balance: %w", err)
		}
		ledgerBalance = balance.Normal()
	}

	if !cached.Equal(ledgerBalance) {
		return ErrBalanceMismatch.Explain("wallet %s: recorded %s, ledger %s", userID, cached, ledgerBalance)
	}
	return nil
}
