package app_test

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/app"
	"github.com/harvestline/backend/internal/infra/metrics"
	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/module/investing"
	"github.com/harvestline/backend/internal/module/wallet"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/settlement"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/testutil/fixture"
)

func TestNew_DefaultsToMemoryBackend(t *testing.T) {
	a, err := app.New(nil, app.Options{})
	require.NoError(t, err)
	assert.NotNil(t, a.Backend)
	assert.ElementsMatch(t, []string{"DISTRIBUTE_PAYOUTS", "WALLET_ADJUSTMENT"}, actionNames(a))
}

func actionNames(a *app.Application) []string {
	var out []string
	for _, action := range a.Approvals.Registry().Actions() {
		out = append(out, string(action))
	}
	return out
}

// Cash is the only account touched by money entering or leaving the
// platform. Everything else moves between accounts, so cash must equal the
// sum of liabilities net of expenses and income at every step.
func TestConservationAcrossRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := fixture.New(t, app.Options{Metrics: metrics.New()})
	admin := f.Admin()

	users := make([]uuid.UUID, 4)
	for i := range users {
		users[i] = f.Investor()
	}
	var deals []*commodity.Commodity
	for i := 0; i < 3; i++ {
		deals = append(deals, f.Commodity("2000"))
	}

	cashIn := decimal.Zero
	amount := func(maxCents int) decimal.Decimal {
		return decimal.New(int64(1+rng.Intn(maxCents)), -2)
	}

	for step := 0; step < 300; step++ {
		u := users[rng.Intn(len(users))]
		var err error

		switch rng.Intn(5) {
		case 0:
			a := amount(100000)
			_, err = f.App.Wallet.Deposit(f.Ctx, wallet.DepositInput{UserID: u, Amount: a})
			if err == nil {
				cashIn = cashIn.Add(a)
			}
		case 1:
			a := amount(50000)
			_, err = f.App.Wallet.Withdraw(f.Ctx, wallet.WithdrawInput{UserID: u, Amount: a})
			if err == nil {
				cashIn = cashIn.Sub(a)
			}
		case 2:
			d := deals[rng.Intn(len(deals))]
			_, err = f.App.Investing.Invest(f.Ctx, investing.InvestInput{
				UserID: u, CommodityID: d.ID, Amount: amount(60000), AckRisk: true, AckTerms: true,
			})
		case 3:
			a := amount(200000)
			if rng.Intn(2) == 0 {
				a = a.Neg()
			}
			_, err = f.App.Wallet.AdjustWallet(f.Ctx, wallet.AdjustInput{ActorID: admin, TargetUserID: u, Amount: a, Reason: "random correction"})
		case 4:
			d := deals[rng.Intn(len(deals))]
			_, err = f.App.Settlement.DistributePayouts(f.Ctx, settlement.DistributeRequest{
				ActorID: admin, CommodityID: d.ID, TotalPayout: amount(300000), Force: true,
			})
		}

		if err != nil {
			kind := apperrors.KindOf(err)
			require.Contains(t, []apperrors.Kind{apperrors.KindDomainGuard}, kind, "step %d: %v", step, err)
		}

		cash := f.AccountBalance(ledger.CashAccount.Key)
		require.True(t, cash.Equal(cashIn), "step %d: cash %s, expected %s", step, cash, cashIn)
	}

	tb := f.RequireConsistent(users...)

	net := decimal.Zero
	for _, b := range tb.Accounts {
		switch b.Account.Type {
		case ledger.AccountTypeLiability, ledger.AccountTypeIncome:
			net = net.Add(b.Normal())
		case ledger.AccountTypeExpense:
			net = net.Sub(b.Normal())
		}
	}
	assert.True(t, net.Equal(cashIn), "liabilities net of expenses and income %s, cash %s", net, cashIn)

	wallets := decimal.Zero
	for _, u := range users {
		wallets = wallets.Add(f.Balance(u))
	}
	escrow := decimal.Zero
	for _, d := range deals {
		escrow = escrow.Add(f.AccountBalance(ledger.EscrowKey(d.ID)))
	}
	expenses := f.AccountBalance(ledger.PayoutExpenseAccount.Key).
		Add(f.AccountBalance(ledger.AdjustmentExpenseAccount.Key)).
		Sub(f.AccountBalance(ledger.AdjustmentIncomeAccount.Key))
	assert.True(t, wallets.Add(escrow).Equal(cashIn.Add(expenses)))
}
