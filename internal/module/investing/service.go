package investing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/idempotency"
	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/investment"
	"github.com/harvestline/backend/internal/platform/transaction"
	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/uow"
	"github.com/harvestline/backend/pkg/logger"
	"github.com/harvestline/backend/pkg/money"
)

// Observer times operations
type Observer interface {
	ObserveOperation(operation string, start time.Time, err error)
}

// Service moves investor principal from wallets into commodity escrow
type Service struct {
	exec        *idempotency.Executor
	writer      *ledger.Writer
	investments investment.Store
	observer    Observer
	logger      *logger.Logger
	now         func() time.Time
}

// NewService creates the investing service. investments serves reads outside
// a unit of work.
func NewService(exec *idempotency.Executor, writer *ledger.Writer, investments investment.Store, observer Observer, log *logger.Logger) *Service {
	return &Service{
		exec:        exec,
		writer:      writer,
		investments: investments,
		observer:    observer,
		logger:      logger.OrDiscard(log).WithComponent("investing"),
		now:         time.Now,
	}
}

// Invest debits the wallet, credits the commodity escrow and records the
// investment. The commodity becomes FUNDED when the last dollar is subscribed.
func (s *Service) Invest(ctx context.Context, in InvestInput) (result *Result, err error) {
	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveOperation("invest", start, err)
		}
	}()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	req := idempotency.Request{UserID: in.UserID, Scope: ScopeInvest, Key: in.IdempotencyKey}
	if in.IdempotencyKey != "" {
		if req.RequestHash, err = idempotency.HashRequest(fingerprint{CommodityID: in.CommodityID, Amount: money.FormatUSD(in.Amount)}); err != nil {
			return nil, err
		}
	}

	res, _, err := idempotency.Do(ctx, s.exec, req, func(ctx context.Context, tx uow.UnitOfWork) (Result, error) {
		return s.invest(ctx, tx, in)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("investment rejected", "user_id", in.UserID, "commodity_id", in.CommodityID)
		return nil, err
	}
	return &res, nil
}

// invest locks the commodity before the user, the same order settlement uses
func (s *Service) invest(ctx context.Context, tx uow.UnitOfWork, in InvestInput) (Result, error) {
	c, err := tx.Commodities().GetForUpdate(ctx, in.CommodityID)
	if err != nil {
		return Result{}, err
	}

	u, err := tx.Users().GetForUpdate(ctx, in.UserID)
	if err != nil {
		return Result{}, err
	}
	if err := u.EnsureCanMoveFunds(); err != nil {
		return Result{}, err
	}
	if err := u.EnsureKYC(); err != nil {
		return Result{}, err
	}

	nextAmount, nextStatus, err := c.Subscribe(in.Amount)
	if err != nil {
		return Result{}, err
	}

	balanceAfter := u.WalletBalance.Sub(in.Amount)
	if balanceAfter.IsNegative() {
		return Result{}, user.ErrInsufficientBalance.Explain(
			"insufficient wallet balance: have %s, need %s", money.FormatUSD(u.WalletBalance), money.FormatUSD(in.Amount))
	}

	now := s.now().UTC()
	inv := &investment.Investment{
		ID:              uuid.New(),
		UserID:          in.UserID,
		CommodityID:     in.CommodityID,
		Amount:          in.Amount,
		Percentage:      money.Fraction(in.Amount, c.AmountRequired),
		ProjectedReturn: money.ProjectedReturn(in.Amount, c.APY, c.DurationDays),
		Status:          investment.StatusActive,
		CreatedAt:       now,
	}
	if err := tx.Investments().Create(ctx, inv); err != nil {
		return Result{}, fmt.Errorf("failed to create investment: %w", err)
	}

	description := "Investment in " + c.Name
	record := transaction.New(in.UserID, transaction.TypeInvestment, in.Amount.Neg(), description, transaction.Metadata{
		IdempotencyKey: in.IdempotencyKey,
		InvestmentID:   &inv.ID,
	}, now)
	record.CommodityID = &c.ID
	if err := tx.Transactions().Create(ctx, record); err != nil {
		return Result{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	entry, err := s.writer.Write(ctx, tx.Ledger(), ledger.EntryMeta{
		Type:          ledger.EntryTypeInvestment,
		Description:   description,
		UserID:        &u.ID,
		CommodityID:   &c.ID,
		TransactionID: &record.ID,
		Metadata: ledger.Metadata{
			IdempotencyKey: in.IdempotencyKey,
			InvestmentID:   &inv.ID,
		},
	}, []ledger.Posting{
		ledger.Debit(ledger.WalletAccount(u.ID), in.Amount),
		ledger.Credit(ledger.EscrowAccount(c.ID), in.Amount),
	})
	if err != nil {
		return Result{}, err
	}

	if err := tx.Transactions().Complete(ctx, record.ID, entry.ID); err != nil {
		return Result{}, fmt.Errorf("failed to complete transaction: %w", err)
	}
	if err := tx.Users().UpdateWalletBalance(ctx, u.ID, balanceAfter); err != nil {
		return Result{}, fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if err := tx.Commodities().UpdateFunding(ctx, c.ID, nextAmount, nextStatus); err != nil {
		return Result{}, fmt.Errorf("failed to update commodity funding: %w", err)
	}

	changes := audit.Changes{
		Amount:        audit.Dec(in.Amount),
		BalanceBefore: audit.Dec(u.WalletBalance),
		BalanceAfter:  audit.Dec(balanceAfter),
		TransactionID: &record.ID,
		LedgerEntryID: &entry.ID,
	}
	if nextStatus != c.Status {
		changes.StatusFrom, changes.StatusTo = string(c.Status), string(nextStatus)
	}
	if err := tx.Audit().Append(ctx, audit.New(u.ID, audit.ActionInvest, audit.EntityInvestment, inv.ID, changes)); err != nil {
		return Result{}, fmt.Errorf("failed to append audit record: %w", err)
	}

	s.logger.WithContext(ctx).Info("investment recorded",
		"user_id", u.ID,
		"commodity_id", c.ID,
		"investment_id", inv.ID,
		"amount", in.Amount.String(),
		"commodity_status", nextStatus,
	)

	return Result{
		InvestmentID:     inv.ID,
		TransactionID:    record.ID,
		NewCurrentAmount: nextAmount,
		CommodityStatus:  nextStatus,
		NewBalance:       balanceAfter,
		Percentage:       inv.Percentage,
		ProjectedReturn:  inv.ProjectedReturn,
	}, nil
}

// ListByUser returns a user's investments, oldest first
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error) {
	return s.investments.ListByUser(ctx, userID)
}
