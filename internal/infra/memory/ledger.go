package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/ledger"
)

type ledgerStore struct{ v view }

func copyAccount(a *ledger.Account) *ledger.Account {
	c := *a
	return &c
}

func copyEntry(e *ledger.Entry) *ledger.Entry {
	c := *e
	c.Lines = make([]*ledger.Line, len(e.Lines))
	for i, l := range e.Lines {
		line := *l
		c.Lines[i] = &line
	}
	return &c
}

func (s ledgerStore) UpsertAccount(_ context.Context, account *ledger.Account) (*ledger.Account, error) {
	st, release := s.v.acquire()
	defer release()

	if existing, ok := st.accounts[account.Key]; ok {
		return copyAccount(existing), nil
	}
	stored := copyAccount(account)
	st.accounts[account.Key] = stored
	st.accountKeys[account.ID] = account.Key
	return copyAccount(stored), nil
}

func (s ledgerStore) GetAccountByKey(_ context.Context, key string) (*ledger.Account, error) {
	st, release := s.v.acquire()
	defer release()

	a, ok := st.accounts[key]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (s ledgerStore) InsertEntry(_ context.Context, entry *ledger.Entry) error {
	st, release := s.v.acquire()
	defer release()

	for _, l := range entry.Lines {
		if _, ok := st.accountKeys[l.AccountID]; !ok {
			return ledger.ErrAccountNotFound.Explain("line references unknown account %s", l.AccountID)
		}
	}

	st.entries = append(st.entries, copyEntry(entry))
	for _, l := range entry.Lines {
		t, ok := st.totals[l.AccountID]
		if !ok {
			t = totals{debit: decimal.Zero, credit: decimal.Zero}
		}
		t.debit = t.debit.Add(l.Debit)
		t.credit = t.credit.Add(l.Credit)
		st.totals[l.AccountID] = t
	}
	return nil
}

func (s ledgerStore) GetEntry(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	st, release := s.v.acquire()
	defer release()

	for _, e := range st.entries {
		if e.ID == id {
			return copyEntry(e), nil
		}
	}
	return nil, ledger.ErrEntryNotFound
}

func (s ledgerStore) ListEntries(_ context.Context, filter ledger.EntryFilter) ([]*ledger.Entry, error) {
	st, release := s.v.acquire()
	defer release()

	var out []*ledger.Entry
	for i := len(st.entries) - 1; i >= 0; i-- {
		e := st.entries[i]
		if filter.UserID != nil && (e.UserID == nil || *e.UserID != *filter.UserID) {
			continue
		}
		if filter.CommodityID != nil && (e.CommodityID == nil || *e.CommodityID != *filter.CommodityID) {
			continue
		}
		if filter.Type != nil && e.Type != *filter.Type {
			continue
		}
		out = append(out, copyEntry(e))
	}
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s ledgerStore) AccountBalance(_ context.Context, accountID uuid.UUID) (*ledger.AccountBalance, error) {
	st, release := s.v.acquire()
	defer release()

	key, ok := st.accountKeys[accountID]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return balanceOf(st, st.accounts[key]), nil
}

func (s ledgerStore) AccountBalances(_ context.Context) ([]*ledger.AccountBalance, error) {
	st, release := s.v.acquire()
	defer release()

	out := make([]*ledger.AccountBalance, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, balanceOf(st, a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Key < out[j].Account.Key })
	return out, nil
}

func balanceOf(st *state, a *ledger.Account) *ledger.AccountBalance {
	t, ok := st.totals[a.ID]
	if !ok {
		t = totals{debit: decimal.Zero, credit: decimal.Zero}
	}
	return &ledger.AccountBalance{Account: copyAccount(a), Debit: t.debit, Credit: t.credit}
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
