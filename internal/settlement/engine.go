// Package settlement distributes deal payouts pro rata across investors.
package settlement

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/approval"
	"github.com/harvestline/backend/internal/idempotency"
	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/platform/investment"
	"github.com/harvestline/backend/internal/platform/transaction"
	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/uow"
	"github.com/harvestline/backend/pkg/logger"
	"github.com/harvestline/backend/pkg/money"
)

// Recorder receives settlement metrics
type Recorder interface {
	ObserveOperation(operation string, start time.Time, err error)
	PayoutDistributed()
}

// Engine runs payout distributions
type Engine struct {
	exec         *idempotency.Executor
	gate         *approval.Gate
	writer       *ledger.Writer
	transactions transaction.Store
	threshold    decimal.Decimal
	recorder     Recorder
	logger       *logger.Logger
	now          func() time.Time
}

// NewEngine creates the engine and registers its approval handler.
// transactions serves the pre-check outside a unit of work.
func NewEngine(
	exec *idempotency.Executor,
	gate *approval.Gate,
	writer *ledger.Writer,
	transactions transaction.Store,
	payoutThreshold decimal.Decimal,
	recorder Recorder,
	log *logger.Logger,
) (*Engine, error) {
	e := &Engine{
		exec:         exec,
		gate:         gate,
		writer:       writer,
		transactions: transactions,
		threshold:    payoutThreshold,
		recorder:     recorder,
		logger:       logger.OrDiscard(log).WithComponent("settlement"),
		now:          time.Now,
	}
	if err := gate.Registry().Register(&distributeHandler{engine: e}); err != nil {
		return nil, fmt.Errorf("failed to register payout handler: %w", err)
	}
	return e, nil
}

// DistributePayouts pays TotalPayout out to the commodity's investors, or
// holds the distribution for a second admin when TotalPayout is at or above
// the approval threshold.
func (e *Engine) DistributePayouts(ctx context.Context, req DistributeRequest) (result *DistributeResult, err error) {
	start := time.Now()
	defer func() {
		if e.recorder != nil {
			e.recorder.ObserveOperation("distribute_payouts", start, err)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	idem := idempotency.Request{UserID: req.ActorID, Scope: ScopeDistribute, Key: req.IdempotencyKey}
	if req.IdempotencyKey != "" {
		if idem.RequestHash, err = idempotency.HashRequest(fingerprint{
			CommodityID: req.CommodityID,
			TotalPayout: money.FormatUSD(req.TotalPayout),
			MarkSettled: req.MarkSettled,
			Force:       req.Force,
		}); err != nil {
			return nil, err
		}
	} else {
		// Rejection before any lock is taken; re-checked inside the unit of work.
		// Keyed calls skip it so a retry of a completed distribution replays.
		exists, err := e.transactions.ExistsForCommodity(ctx, req.CommodityID, transaction.TypePayout)
		if err != nil {
			return nil, fmt.Errorf("failed to check prior payouts: %w", err)
		}
		if exists {
			return nil, ErrAlreadyDistributed
		}
	}

	res, _, err := idempotency.Do(ctx, e.exec, idem, func(ctx context.Context, tx uow.UnitOfWork) (DistributeResult, error) {
		if _, err := user.RequireAdmin(ctx, tx.Users(), req.ActorID); err != nil {
			return DistributeResult{}, err
		}

		payload := adminreq.DistributePayouts{
			CommodityID: req.CommodityID,
			TotalPayout: req.TotalPayout,
			MarkSettled: req.MarkSettled,
			Force:       req.Force,
		}

		if approval.RequiresApproval(req.TotalPayout, e.threshold) {
			// Fail now on what would fail at approval time
			if _, err := e.lockEligible(ctx, tx, payload); err != nil {
				return DistributeResult{}, err
			}
			pending, err := e.gate.Submit(ctx, tx, approval.Submission{
				Action:      adminreq.ActionDistributePayouts,
				EntityType:  audit.EntityCommodity,
				EntityID:    req.CommodityID,
				RequestedBy: req.ActorID,
				Payload:     adminreq.Payload{DistributePayouts: &payload},
			})
			if err != nil {
				return DistributeResult{}, err
			}
			return DistributeResult{
				RequiresApproval:  true,
				ApprovalRequestID: &pending.ID,
				TotalPayout:       req.TotalPayout,
			}, nil
		}

		return e.distribute(ctx, tx, payload, req.ActorID, req.ActorID, req.IdempotencyKey, nil)
	})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("payout distribution rejected", "commodity_id", req.CommodityID, "actor", req.ActorID)
		return nil, err
	}
	return &res, nil
}

// lockEligible locks the commodity row and checks the preconditions that do
// not depend on investments: lifecycle state and no prior PAYOUT
func (e *Engine) lockEligible(ctx context.Context, tx uow.UnitOfWork, p adminreq.DistributePayouts) (*commodity.Commodity, error) {
	c, err := tx.Commodities().GetForUpdate(ctx, p.CommodityID)
	if err != nil {
		return nil, err
	}

	if c.Status == commodity.StatusCancelled {
		return nil, ErrNotEligible.Explain("commodity was cancelled")
	}
	if !p.Force && !c.Status.IsPayoutEligible() {
		return nil, ErrNotEligible.Explain("commodity is %s; payouts need %s or force", c.Status, commodity.StatusReleased)
	}

	exists, err := tx.Transactions().ExistsForCommodity(ctx, c.ID, transaction.TypePayout)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check prior payouts: %w", err)
	}
	if exists {
		return nil, ErrAlreadyDistributed
	}
	return c, nil
}

// share is one user's aggregated payout across their investments
type share struct {
	userID      uuid.UUID
	amount      decimal.Decimal
	investments int
}

// distribute applies the distribution inside tx. requestedBy is the admin who
// asked for it and actorID the admin applying it; they differ after approval.
func (e *Engine) distribute(
	ctx context.Context,
	tx uow.UnitOfWork,
	p adminreq.DistributePayouts,
	requestedBy, actorID uuid.UUID,
	idempotencyKey string,
	approvalID *uuid.UUID,
) (DistributeResult, error) {
	c, err := e.lockEligible(ctx, tx, p)
	if err != nil {
		return DistributeResult{}, err
	}

	all, err := tx.Investments().ListByCommodityForUpdate(ctx, c.ID)
	if err != nil {
		return DistributeResult{}, fmt.Errorf("failed to load investments: %w", err)
	}
	investments := make([]*investment.Investment, 0, len(all))
	for _, inv := range all {
		if inv.Status == investment.StatusActive {
			investments = append(investments, inv)
		}
	}
	if len(investments) == 0 {
		return DistributeResult{}, ErrNoInvestments
	}

	totalInvested := decimal.Zero
	weights := make([]decimal.Decimal, len(investments))
	for i, inv := range investments {
		weights[i] = inv.Amount
		totalInvested = totalInvested.Add(inv.Amount)
	}
	if !totalInvested.IsPositive() {
		return DistributeResult{}, ErrInvalidTotals
	}

	// Largest-remainder allocation: per-investment payouts sum to TotalPayout exactly
	payouts, err := money.AllocateProRata(p.TotalPayout, weights)
	if err != nil {
		return DistributeResult{}, ErrInvalidTotals.Explain("cannot allocate payout: %v", err)
	}

	now := e.now().UTC()

	// Aggregate per user in first-seen order and settle every investment
	var shares []*share
	byUser := make(map[uuid.UUID]*share)
	for i, inv := range investments {
		sh, ok := byUser[inv.UserID]
		if !ok {
			sh = &share{userID: inv.UserID, amount: decimal.Zero}
			byUser[inv.UserID] = sh
			shares = append(shares, sh)
		}
		sh.amount = sh.amount.Add(payouts[i])
		sh.investments++

		if err := tx.Investments().MarkSettled(ctx, inv.ID, payouts[i].Sub(inv.Amount), now); err != nil {
			return DistributeResult{}, fmt.Errorf("failed to settle investment %s: %w", inv.ID, err)
		}
	}

	paying := make([]*share, 0, len(shares))
	for _, sh := range shares {
		if sh.amount.IsPositive() {
			paying = append(paying, sh)
		}
	}

	// Lock wallets in a stable order so concurrent distributions cannot deadlock
	locked := make([]*share, len(paying))
	copy(locked, paying)
	sort.Slice(locked, func(i, j int) bool { return bytes.Compare(locked[i].userID[:], locked[j].userID[:]) < 0 })
	users := make(map[uuid.UUID]*user.User, len(locked))
	for _, sh := range locked {
		u, err := tx.Users().GetForUpdate(ctx, sh.userID)
		if err != nil {
			return DistributeResult{}, err
		}
		users[sh.userID] = u
	}

	description := "Payout for " + c.Name
	records := make([]*transaction.Transaction, len(paying))
	postings := make([]ledger.Posting, 0, len(paying)+1)
	postings = append(postings, ledger.Debit(ledger.PayoutExpenseAccount, p.TotalPayout))
	for i, sh := range paying {
		record := transaction.New(sh.userID, transaction.TypePayout, sh.amount, description, transaction.Metadata{
			IdempotencyKey:    idempotencyKey,
			ApprovalRequestID: approvalID,
			ActorUserID:       &requestedBy,
			InvestmentCount:   sh.investments,
		}, now)
		record.CommodityID = &c.ID
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return DistributeResult{}, err
		}
		records[i] = record
		postings = append(postings, ledger.Credit(ledger.WalletAccount(sh.userID), sh.amount))
	}

	entry, err := e.writer.Write(ctx, tx.Ledger(), ledger.EntryMeta{
		Type:        ledger.EntryTypePayout,
		Description: description,
		CommodityID: &c.ID,
		Metadata: ledger.Metadata{
			IdempotencyKey:    idempotencyKey,
			ApprovalRequestID: approvalID,
			InvestorCount:     len(paying),
			InvestmentCount:   len(investments),
		},
	}, postings)
	if err != nil {
		return DistributeResult{}, err
	}

	result := DistributeResult{
		InvestorCount:   len(paying),
		InvestmentCount: len(investments),
		TotalInvested:   totalInvested,
		TotalPayout:     p.TotalPayout,
		LedgerEntryID:   &entry.ID,
		Payouts:         make([]UserPayout, 0, len(paying)),
	}

	for i, sh := range paying {
		if err := tx.Transactions().Complete(ctx, records[i].ID, entry.ID); err != nil {
			return DistributeResult{}, fmt.Errorf("failed to complete payout transaction: %w", err)
		}
		u := users[sh.userID]
		if err := tx.Users().UpdateWalletBalance(ctx, u.ID, u.WalletBalance.Add(sh.amount)); err != nil {
			return DistributeResult{}, fmt.Errorf("failed to credit wallet: %w", err)
		}
		result.Payouts = append(result.Payouts, UserPayout{
			UserID:          sh.userID,
			Amount:          sh.amount,
			InvestmentCount: sh.investments,
			TransactionID:   records[i].ID,
		})
	}

	changes := audit.Changes{
		LedgerEntryID:     &entry.ID,
		ApprovalRequestID: approvalID,
		InvestorCount:     result.InvestorCount,
		InvestmentCount:   result.InvestmentCount,
		TotalInvested:     audit.Dec(totalInvested),
		TotalPayout:       audit.Dec(p.TotalPayout),
		Forced:            p.Force,
	}
	if p.MarkSettled && c.Status != commodity.StatusSettled {
		ok, err := tx.Commodities().CompareAndSetStatus(ctx, c.ID, c.Status, commodity.StatusSettled)
		if err != nil {
			return DistributeResult{}, fmt.Errorf("failed to mark commodity settled: %w", err)
		}
		if !ok {
			return DistributeResult{}, commodity.ErrInvalidTransition.Explain("commodity status changed during settlement")
		}
		changes.StatusFrom, changes.StatusTo = string(c.Status), string(commodity.StatusSettled)
	}

	if err := tx.Audit().Append(ctx, audit.New(actorID, audit.ActionDistributePayouts, audit.EntityCommodity, c.ID, changes)); err != nil {
		return DistributeResult{}, fmt.Errorf("failed to append audit record: %w", err)
	}

	if e.recorder != nil {
		e.recorder.PayoutDistributed()
	}
	e.logger.WithContext(ctx).Info("payouts distributed",
		"commodity_id", c.ID,
		"investor_count", result.InvestorCount,
		"investment_count", result.InvestmentCount,
		"total_invested", totalInvested.String(),
		"total_payout", p.TotalPayout.String(),
		"ledger_entry_id", entry.ID,
	)

	return result, nil
}
