package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/ledger"
)

// MockWalletReader is a mock implementation of ledger.WalletBalanceReader
type MockWalletReader struct {
	mock.Mock
}

func (m *MockWalletReader) WalletBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func seedDeposit(t *testing.T, store *fakeStore, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := ledger.NewWriter(nil, nil).Write(context.Background(), store, ledger.EntryMeta{Type: ledger.EntryTypeDeposit, UserID: &userID}, []ledger.Posting{
		ledger.Debit(ledger.CashAccount, usd(amount)),
		ledger.Credit(ledger.WalletAccount(userID), usd(amount)),
	})
	require.NoError(t, err)
}

func TestService_TrialBalance(t *testing.T) {
	store := newFakeStore()
	seedDeposit(t, store, uuid.New(), "250.00")
	seedDeposit(t, store, uuid.New(), "100.50")

	tb, err := ledger.NewService(store, nil).TrialBalance(context.Background())
	require.NoError(t, err)

	assert.True(t, tb.IsBalanced())
	assert.True(t, tb.TotalDebit.Equal(usd("350.50")))
	assert.Len(t, tb.Accounts, 3)
}

func TestService_TrialBalance_DetectsCorruption(t *testing.T) {
	store := newFakeStore()
	seedDeposit(t, store, uuid.New(), "10")
	store.entries[0].Lines[0].Debit = usd("11")

	tb, err := ledger.NewService(store, nil).TrialBalance(context.Background())
	assert.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	require.NotNil(t, tb)
	assert.False(t, tb.IsBalanced())
}

func TestService_ReconcileWallet(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	store := newFakeStore()
	seedDeposit(t, store, userID, "75.25")

	t.Run("matches", func(t *testing.T) {
		wallets := new(MockWalletReader)
		wallets.On("WalletBalance", mock.Anything, userID).Return(usd("75.25"), nil)

		assert.NoError(t, ledger.NewService(store, wallets).ReconcileWallet(ctx, userID))
		wallets.AssertExpectations(t)
	})

	t.Run("mismatch", func(t *testing.T) {
		wallets := new(MockWalletReader)
		wallets.On("WalletBalance", mock.Anything, userID).Return(usd("80"), nil)

		err := ledger.NewService(store, wallets).ReconcileWallet(ctx, userID)
		assert.ErrorIs(t, err, ledger.ErrBalanceMismatch)
	})

	t.Run("no wallet account yet", func(t *testing.T) {
		other := uuid.New()
		wallets := new(MockWalletReader)
		wallets.On("WalletBalance", mock.Anything, other).Return(decimal.Zero, nil)

		assert.NoError(t, ledger.NewService(store, wallets).ReconcileWallet(ctx, other))
	})
}
