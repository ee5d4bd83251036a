package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/ledger"
)

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) EntryWritten(entryType string) {
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[entryType]++
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// Registry Tests
// =============================================================================

func TestRegistry_Resolve_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	registry := ledger.NewRegistry()
	userID := uuid.New()

	first, err := registry.Resolve(ctx, store, ledger.WalletAccount(userID))
	require.NoError(t, err)
	second, err := registry.Resolve(ctx, store, ledger.WalletAccount(userID))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, ledger.AccountTypeLiability, first.Type)
	assert.Len(t, store.accounts, 1)
}

func TestRegistry_Resolve_TypeConflict(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	registry := ledger.NewRegistry()

	_, err := registry.Resolve(ctx, store, ledger.SystemAccount("cash", ledger.AccountTypeAsset))
	require.NoError(t, err)

	_, err = registry.Resolve(ctx, store, ledger.SystemAccount("cash", ledger.AccountTypeIncome))
	assert.ErrorIs(t, err, ledger.ErrAccountConflict)
}

func TestRegistry_Resolve_InvalidSpec(t *testing.T) {
	_, err := ledger.NewRegistry().Resolve(context.Background(), newFakeStore(), ledger.AccountSpec{Key: "cash", Type: ledger.AccountTypeAsset})
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountKey)
}

// =============================================================================
// Writer Tests
// =============================================================================

func TestWriter_Write_PayoutEntry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	observer := &countingObserver{}
	writer := ledger.NewWriter(nil, observer)

	commodityID := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	entry, err := writer.Write(ctx, store, ledger.EntryMeta{
		Type:        ledger.EntryTypePayout,
		Description: "payout",
		CommodityID: &commodityID,
		Metadata:    ledger.Metadata{InvestorCount: 2, InvestmentCount: 2},
	}, []ledger.Posting{
		ledger.Debit(ledger.PayoutExpenseAccount, usd("1100")),
		ledger.Credit(ledger.WalletAccount(alice), usd("660")),
		ledger.Credit(ledger.WalletAccount(bob), usd("440")),
	})
	require.NoError(t, err)

	require.Len(t, entry.Lines, 3)
	assert.True(t, entry.IsBalanced())
	assert.Equal(t, "USD", entry.Currency)
	for _, l := range entry.Lines {
		assert.Equal(t, entry.ID, l.EntryID)
		assert.NotEqual(t, uuid.Nil, l.AccountID)
	}
	assert.Len(t, store.entries, 1)
	assert.Len(t, store.accounts, 3)
	assert.Equal(t, 1, observer.counts["PAYOUT"])
}

func TestWriter_Write_ResolvesAccountsInKeyOrder(t *testing.T) {
	store := newFakeStore()
	writer := ledger.NewWriter(nil, nil)

	_, err := writer.Write(context.Background(), store, ledger.EntryMeta{Type: ledger.EntryTypeDeposit}, []ledger.Posting{
		ledger.Debit(ledger.CashAccount, usd("10")),
		ledger.Credit(ledger.WalletAccount(uuid.New()), usd("10")),
	})
	require.NoError(t, err)

	assert.True(t, sort.StringsAreSorted(store.upserts), "upserts: %v", store.upserts)
}

func TestWriter_Write_RejectsUnbalanced(t *testing.T) {
	store := newFakeStore()
	writer := ledger.NewWriter(nil, nil)

	_, err := writer.Write(context.Background(), store, ledger.EntryMeta{Type: ledger.EntryTypeDeposit}, []ledger.Posting{
		ledger.Debit(ledger.CashAccount, usd("100.00")),
		ledger.Credit(ledger.WalletAccount(uuid.New()), usd("99.99")),
	})

	assert.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	assert.Empty(t, store.entries)
	assert.Empty(t, store.accounts, "no account is created for a rejected entry")
}

func TestWriter_Write_InvalidInput(t *testing.T) {
	wallet := ledger.WalletAccount(uuid.New())

	tests := []struct {
		name     string
		meta     ledger.EntryMeta
		postings []ledger.Posting
		err      error
	}{
		{
			name: "no lines",
			meta: ledger.EntryMeta{Type: ledger.EntryTypeDeposit},
			err:  ledger.ErrEmptyEntry,
		},
		{
			name:     "unknown type",
			meta:     ledger.EntryMeta{Type: "GIFT"},
			postings: []ledger.Posting{ledger.Debit(ledger.CashAccount, usd("1")), ledger.Credit(wallet, usd("1"))},
			err:      ledger.ErrInvalidEntryType,
		},
		{
			name:     "adjustment without reason",
			meta:     ledger.EntryMeta{Type: ledger.EntryTypeAdjustment},
			postings: []ledger.Posting{ledger.Debit(ledger.AdjustmentExpenseAccount, usd("1")), ledger.Credit(wallet, usd("1"))},
			err:      ledger.ErrInvalidMetadata,
		},
		{
			name:     "negative amount",
			meta:     ledger.EntryMeta{Type: ledger.EntryTypeDeposit},
			postings: []ledger.Posting{ledger.Debit(ledger.CashAccount, usd("-1")), ledger.Credit(wallet, usd("-1"))},
			err:      ledger.ErrInvalidLine,
		},
		{
			name:     "zero line",
			meta:     ledger.EntryMeta{Type: ledger.EntryTypeDeposit},
			postings: []ledger.Posting{ledger.Debit(ledger.CashAccount, decimal.Zero), ledger.Credit(wallet, decimal.Zero)},
			err:      ledger.ErrInvalidLine,
		},
		{
			name: "both sides on one line",
			meta: ledger.EntryMeta{Type: ledger.EntryTypeDeposit},
			postings: []ledger.Posting{
				{Account: ledger.CashAccount, Debit: usd("1"), Credit: usd("1")},
			},
			err: ledger.ErrInvalidLine,
		},
		{
			name:     "sub-cent amount",
			meta:     ledger.EntryMeta{Type: ledger.EntryTypeDeposit},
			postings: []ledger.Posting{ledger.Debit(ledger.CashAccount, usd("0.001")), ledger.Credit(wallet, usd("0.001"))},
			err:      ledger.ErrInvalidLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			_, err := ledger.NewWriter(nil, nil).Write(context.Background(), store, tt.meta, tt.postings)
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, store.entries)
		})
	}
}

func TestWriter_Write_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection reset")
	observer := &countingObserver{}

	_, err := ledger.NewWriter(nil, observer).Write(context.Background(), store, ledger.EntryMeta{Type: ledger.EntryTypeDeposit}, []ledger.Posting{
		ledger.Debit(ledger.CashAccount, usd("5")),
		ledger.Credit(ledger.WalletAccount(uuid.New()), usd("5")),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, observer.counts["DEPOSIT"])
}

// TestCheck_RandomEntries generates random line sets and verifies the writer
// accepts exactly those whose debits and credits are equal
func TestCheck_RandomEntries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	meta := ledger.EntryMeta{Type: ledger.EntryTypeDeposit}

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(6)
		postings := make([]ledger.Posting, 0, n)
		debit, credit := decimal.Zero, decimal.Zero
		for j := 0; j < n; j++ {
			amount := decimal.New(int64(1+rng.Intn(100000)), -2)
			account := ledger.SystemAccount("acct_"+string(rune('a'+j)), ledger.AccountTypeAsset)
			if rng.Intn(2) == 0 {
				postings = append(postings, ledger.Debit(account, amount))
				debit = debit.Add(amount)
			} else {
				postings = append(postings, ledger.Credit(account, amount))
				credit = credit.Add(amount)
			}
		}

		// Balance roughly half of the sets with a closing line
		if rng.Intn(2) == 0 {
			diff := debit.Sub(credit)
			closing := ledger.SystemAccount("closing", ledger.AccountTypeAsset)
			switch {
			case diff.IsPositive():
				postings = append(postings, ledger.Credit(closing, diff))
				credit = credit.Add(diff)
			case diff.IsNegative():
				postings = append(postings, ledger.Debit(closing, diff.Neg()))
				debit = debit.Add(diff.Neg())
			}
		}

		err := ledger.Check(meta, postings)
		if debit.Equal(credit) {
			assert.NoError(t, err, "iteration %d", i)
		} else {
			assert.ErrorIs(t, err, ledger.ErrUnbalancedEntry, "iteration %d", i)
		}
	}
}
