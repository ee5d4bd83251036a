// Package fixture builds an application with seeded users and deals for
// service-level tests.
package fixture

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/app"
	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/module/investing"
	"github.com/harvestline/backend/internal/module/wallet"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/platform/user"
)

// Fixture is an application over one storage backend
type Fixture struct {
	t   testing.TB
	Ctx context.Context
	DB  app.Backend
	App *app.Application
}

// New creates a fixture over a fresh memory database
func New(t testing.TB, opts app.Options) *Fixture {
	return NewWithBackend(t, memory.New(), opts)
}

// NewWithBackend creates a fixture over an existing backend
func NewWithBackend(t testing.TB, backend app.Backend, opts app.Options) *Fixture {
	t.Helper()
	a, err := app.New(backend, opts)
	require.NoError(t, err)
	return &Fixture{t: t, Ctx: context.Background(), DB: backend, App: a}
}

// Dollars parses a USD amount, failing the test on bad input
func (f *Fixture) Dollars(s string) decimal.Decimal {
	f.t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(f.t, err)
	return d
}

// UserWith seeds a user with explicit flags and an empty wallet. The password
// hash is a placeholder; seeded users cannot log in.
func (f *Fixture) UserWith(flags user.Flags) uuid.UUID {
	f.t.Helper()
	now := time.Now().UTC()
	u := &user.User{
		ID:            uuid.New(),
		PasswordHash:  "seeded",
		Role:          flags.Role,
		WalletBalance: decimal.Zero,
		KYCStatus:     flags.KYCStatus,
		WalletFrozen:  flags.WalletFrozen,
		Disabled:      flags.Disabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	u.Email = fmt.Sprintf("%s@example.com", u.ID)
	require.NoError(f.t, f.DB.Users().Create(f.Ctx, u))
	return u.ID
}

// Investor seeds a KYC-approved USER
func (f *Fixture) Investor() uuid.UUID {
	return f.UserWith(user.Flags{Role: user.RoleUser, KYCStatus: user.KYCApproved})
}

// Admin seeds a KYC-approved ADMIN
func (f *Fixture) Admin() uuid.UUID {
	return f.UserWith(user.Flags{Role: user.RoleAdmin, KYCStatus: user.KYCApproved})
}

// SetFlags replaces a user's flags
func (f *Fixture) SetFlags(userID uuid.UUID, flags user.Flags) {
	f.t.Helper()
	require.NoError(f.t, f.DB.Users().UpdateFlags(f.Ctx, userID, flags))
}

// Fund deposits amount into the user's wallet
func (f *Fixture) Fund(userID uuid.UUID, amount string) {
	f.t.Helper()
	_, err := f.App.Wallet.Deposit(f.Ctx, wallet.DepositInput{UserID: userID, Amount: f.Dollars(amount)})
	require.NoError(f.t, err)
}

// Balance returns the cached wallet balance
func (f *Fixture) Balance(userID uuid.UUID) decimal.Decimal {
	f.t.Helper()
	b, err := f.App.Users.WalletBalance(f.Ctx, userID)
	require.NoError(f.t, err)
	return b
}

// Commodity opens a FUNDING deal without a minimum investment
func (f *Fixture) Commodity(amountRequired string) *commodity.Commodity {
	f.t.Helper()
	c, err := f.App.Commodities.Create(f.Ctx, commodity.CreateInput{
		Name:           "Cocoa lot " + uuid.NewString()[:8],
		AmountRequired: f.Dollars(amountRequired),
		MinInvestment:  decimal.Zero,
		APY:            decimal.NewFromInt(12),
		DurationDays:   90,
	})
	require.NoError(f.t, err)
	return c
}

// Invest funds the user's wallet with amount and invests it
func (f *Fixture) Invest(userID, commodityID uuid.UUID, amount string) *investing.Result {
	f.t.Helper()
	f.Fund(userID, amount)
	res, err := f.App.Investing.Invest(f.Ctx, investing.InvestInput{
		UserID:      userID,
		CommodityID: commodityID,
		Amount:      f.Dollars(amount),
		AckRisk:     true,
		AckTerms:    true,
	})
	require.NoError(f.t, err)
	return res
}

var lifecycle = []commodity.Status{
	commodity.StatusFunding,
	commodity.StatusFunded,
	commodity.StatusInTransit,
	commodity.StatusArrived,
	commodity.StatusReleased,
}

// Advance walks a deal forward along its lifecycle until it reaches target
func (f *Fixture) Advance(commodityID uuid.UUID, target commodity.Status) {
	f.t.Helper()
	c, err := f.App.Commodities.Get(f.Ctx, commodityID)
	require.NoError(f.t, err)

	if target == commodity.StatusCancelled {
		_, err := f.App.Commodities.Transition(f.Ctx, commodityID, target)
		require.NoError(f.t, err)
		return
	}

	started := false
	for _, s := range lifecycle {
		if s == c.Status {
			started = true
			continue
		}
		if !started {
			continue
		}
		_, err := f.App.Commodities.Transition(f.Ctx, commodityID, s)
		require.NoError(f.t, err)
		if s == target {
			return
		}
	}
	require.Equal(f.t, target, c.Status, "commodity cannot advance to %s", target)
}

// RequireConsistent checks the trial balance and every given wallet against
// its ledger account
func (f *Fixture) RequireConsistent(userIDs ...uuid.UUID) *ledger.TrialBalance {
	f.t.Helper()
	tb, err := f.App.Ledger.TrialBalance(f.Ctx)
	require.NoError(f.t, err)
	require.True(f.t, tb.IsBalanced(), "trial balance is off: debits %s credits %s", tb.TotalDebit, tb.TotalCredit)
	for _, id := range userIDs {
		require.NoError(f.t, f.App.Ledger.ReconcileWallet(f.Ctx, id))
	}
	return tb
}

// AccountBalance returns the normal-side balance of the account with key, or
// zero when the account was never posted to
func (f *Fixture) AccountBalance(key string) decimal.Decimal {
	f.t.Helper()
	account, err := f.DB.Ledger().GetAccountByKey(f.Ctx, key)
	if err != nil {
		require.ErrorIs(f.t, err, ledger.ErrAccountNotFound)
		return decimal.Zero
	}
	b, err := f.DB.Ledger().AccountBalance(f.Ctx, account.ID)
	require.NoError(f.t, err)
	return b.Normal()
}
