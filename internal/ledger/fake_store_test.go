package ledger_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/ledger"
)

// fakeStore is a minimal map-backed ledger.Store
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*ledger.Account
	entries   []*ledger.Entry
	insertErr error
	upserts   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*ledger.Account)}
}

func (s *fakeStore) UpsertAccount(_ context.Context, account *ledger.Account) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, account.Key)
	if existing, ok := s.accounts[account.Key]; ok {
		return existing, nil
	}
	cp := *account
	s.accounts[account.Key] = &cp
	return &cp, nil
}

func (s *fakeStore) GetAccountByKey(_ context.Context, key string) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[key]; ok {
		return a, nil
	}
	return nil, ledger.ErrAccountNotFound
}

func (s *fakeStore) InsertEntry(_ context.Context, entry *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) GetEntry(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ledger.ErrEntryNotFound
}

func (s *fakeStore) ListEntries(_ context.Context, _ ledger.EntryFilter) ([]*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ledger.Entry(nil), s.entries...), nil
}

func (s *fakeStore) AccountBalance(_ context.Context, accountID uuid.UUID) (*ledger.AccountBalance, error) {
	balances, _ := s.AccountBalances(context.Background())
	for _, b := range balances {
		if b.Account.ID == accountID {
			return b, nil
		}
	}
	return nil, errors.New("no such account")
}

func (s *fakeStore) AccountBalances(_ context.Context) ([]*ledger.AccountBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[uuid.UUID]*ledger.AccountBalance, len(s.accounts))
	for _, a := range s.accounts {
		byID[a.ID] = &ledger.AccountBalance{Account: a, Debit: decimal.Zero, Credit: decimal.Zero}
	}
	for _, e := range s.entries {
		for _, l := range e.Lines {
			b := byID[l.AccountID]
			b.Debit = b.Debit.Add(l.Debit)
			b.Credit = b.Credit.Add(l.Credit)
		}
	}

	out := make([]*ledger.AccountBalance, 0, len(byID))
	for _, b := range byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Key < out[j].Account.Key })
	return out, nil
}
