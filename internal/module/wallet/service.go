package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/approval"
	"github.com/harvestline/backend/internal/idempotency"
	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
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

// Service moves money in and out of user wallets. Every movement updates the
// cached balance and writes its balanced ledger entry in one unit of work.
type Service struct {
	exec      *idempotency.Executor
	gate      *approval.Gate
	writer    *ledger.Writer
	threshold decimal.Decimal
	observer  Observer
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates the wallet service and registers its approval handler
func NewService(
	exec *idempotency.Executor,
	gate *approval.Gate,
	writer *ledger.Writer,
	adjustmentThreshold decimal.Decimal,
	observer Observer,
	log *logger.Logger,
) (*Service, error) {
	s := &Service{
		exec:      exec,
		gate:      gate,
		writer:    writer,
		threshold: adjustmentThreshold,
		observer:  observer,
		logger:    logger.OrDiscard(log).WithComponent("wallet"),
		now:       time.Now,
	}
	if err := gate.Registry().Register(&adjustmentHandler{svc: s}); err != nil {
		return nil, fmt.Errorf("failed to register wallet adjustment handler: %w", err)
	}
	return s, nil
}

// Deposit credits an instantly settled deposit to the user's wallet
func (s *Service) Deposit(ctx context.Context, in DepositInput) (result *Result, err error) {
	defer s.observe("deposit", time.Now(), &err)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	req, err := s.request(in.UserID, ScopeDeposit, in.IdempotencyKey, movementFingerprint{Amount: money.FormatUSD(in.Amount)})
	if err != nil {
		return nil, err
	}

	res, _, err := idempotency.Do(ctx, s.exec, req, func(ctx context.Context, tx uow.UnitOfWork) (Result, error) {
		u, err := tx.Users().GetForUpdate(ctx, in.UserID)
		if err != nil {
			return Result{}, err
		}
		if err := u.EnsureCanMoveFunds(); err != nil {
			return Result{}, err
		}

		return s.move(ctx, tx, movement{
			user:        u,
			actorID:     in.UserID,
			delta:       in.Amount,
			txType:      transaction.TypeDeposit,
			entryType:   ledger.EntryTypeDeposit,
			auditAction: audit.ActionDeposit,
			description: "Wallet deposit",
			postings: []ledger.Posting{
				ledger.Debit(ledger.CashAccount, in.Amount),
				ledger.Credit(ledger.WalletAccount(in.UserID), in.Amount),
			},
			meta: transaction.Metadata{IdempotencyKey: in.IdempotencyKey},
		})
	})
	if err != nil {
		s.logRejected(ctx, "deposit", in.UserID, err)
		return nil, err
	}
	return &res, nil
}

// Withdraw pays out of the user's wallet; the user must have approved KYC
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (result *Result, err error) {
	defer s.observe("withdraw", time.Now(), &err)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	req, err := s.request(in.UserID, ScopeWithdraw, in.IdempotencyKey, movementFingerprint{Amount: money.FormatUSD(in.Amount)})
	if err != nil {
		return nil, err
	}

	res, _, err := idempotency.Do(ctx, s.exec, req, func(ctx context.Context, tx uow.UnitOfWork) (Result, error) {
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

		return s.move(ctx, tx, movement{
			user:        u,
			actorID:     in.UserID,
			delta:       in.Amount.Neg(),
			txType:      transaction.TypeWithdrawal,
			entryType:   ledger.EntryTypeWithdrawal,
			auditAction: audit.ActionWithdraw,
			description: "Wallet withdrawal",
			postings: []ledger.Posting{
				ledger.Debit(ledger.WalletAccount(in.UserID), in.Amount),
				ledger.Credit(ledger.CashAccount, in.Amount),
			},
			meta: transaction.Metadata{IdempotencyKey: in.IdempotencyKey},
		})
	})
	if err != nil {
		s.logRejected(ctx, "withdraw", in.UserID, err)
		return nil, err
	}
	return &res, nil
}

// AdjustWallet applies an admin correction, or holds it for a second admin
// when its magnitude is at or above the approval threshold
func (s *Service) AdjustWallet(ctx context.Context, in AdjustInput) (result *AdjustResult, err error) {
	defer s.observe("adjust_wallet", time.Now(), &err)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	req, err := s.request(in.ActorID, ScopeAdjust, in.IdempotencyKey, adjustFingerprint{
		TargetUserID: in.TargetUserID,
		Amount:       money.FormatUSD(in.Amount),
		Reason:       in.Reason,
	})
	if err != nil {
		return nil, err
	}

	res, _, err := idempotency.Do(ctx, s.exec, req, func(ctx context.Context, tx uow.UnitOfWork) (AdjustResult, error) {
		if _, err := user.RequireAdmin(ctx, tx.Users(), in.ActorID); err != nil {
			return AdjustResult{}, err
		}

		if approval.RequiresApproval(in.Amount, s.threshold) {
			target, err := tx.Users().GetByID(ctx, in.TargetUserID)
			if err != nil {
				return AdjustResult{}, err
			}
			if target.WalletBalance.Add(in.Amount).IsNegative() {
				return AdjustResult{}, ErrNegativeBalance
			}

			pending, err := s.gate.Submit(ctx, tx, approval.Submission{
				Action:      adminreq.ActionWalletAdjustment,
				EntityType:  audit.EntityUser,
				EntityID:    in.TargetUserID,
				RequestedBy: in.ActorID,
				Payload: adminreq.Payload{WalletAdjustment: &adminreq.WalletAdjustment{
					TargetUserID: in.TargetUserID,
					Amount:       in.Amount,
					Reason:       in.Reason,
				}},
			})
			if err != nil {
				return AdjustResult{}, err
			}
			return AdjustResult{RequiresApproval: true, ApprovalRequestID: &pending.ID}, nil
		}

		applied, err := s.adjust(ctx, tx, in.ActorID, in.ActorID, in.TargetUserID, in.Amount, in.Reason, in.IdempotencyKey, nil)
		if err != nil {
			return AdjustResult{}, err
		}
		return AdjustResult{TransactionID: &applied.TransactionID, NewBalance: &applied.NewBalance}, nil
	})
	if err != nil {
		s.logRejected(ctx, "adjust_wallet", in.TargetUserID, err)
		return nil, err
	}
	return &res, nil
}

// adjust applies a signed adjustment. requestedBy is the admin who asked for
// it; actorID is the admin whose action applies it (the approver, if gated).
func (s *Service) adjust(
	ctx context.Context,
	tx uow.UnitOfWork,
	requestedBy, actorID, targetID uuid.UUID,
	amount decimal.Decimal,
	reason, idempotencyKey string,
	approvalID *uuid.UUID,
) (Result, error) {
	target, err := tx.Users().GetForUpdate(ctx, targetID)
	if err != nil {
		return Result{}, err
	}

	var postings []ledger.Posting
	if amount.IsPositive() {
		postings = []ledger.Posting{
			ledger.Debit(ledger.AdjustmentExpenseAccount, amount),
			ledger.Credit(ledger.WalletAccount(targetID), amount),
		}
	} else {
		postings = []ledger.Posting{
			ledger.Debit(ledger.WalletAccount(targetID), amount.Neg()),
			ledger.Credit(ledger.AdjustmentIncomeAccount, amount.Neg()),
		}
	}

	return s.move(ctx, tx, movement{
		user:        target,
		actorID:     actorID,
		delta:       amount,
		txType:      transaction.TypeAdjustment,
		entryType:   ledger.EntryTypeAdjustment,
		auditAction: audit.ActionWalletAdjustment,
		description: "Admin wallet adjustment: " + reason,
		postings:    postings,
		reason:      reason,
		approvalID:  approvalID,
		meta: transaction.Metadata{
			IdempotencyKey:    idempotencyKey,
			ApprovalRequestID: approvalID,
			ActorUserID:       &requestedBy,
			Reason:            reason,
		},
	})
}

// movement is one balance change of one user with its ledger postings
type movement struct {
	user        *user.User
	actorID     uuid.UUID
	delta       decimal.Decimal
	txType      transaction.Type
	entryType   ledger.EntryType
	auditAction audit.Action
	description string
	postings    []ledger.Posting
	reason      string
	approvalID  *uuid.UUID
	meta        transaction.Metadata
}

// move performs the only permitted balance mutation path: read balance,
// compute the new one, record the transaction and balanced entry, store the
// balance and audit it, all through tx
func (s *Service) move(ctx context.Context, tx uow.UnitOfWork, m movement) (Result, error) {
	before := m.user.WalletBalance
	after := before.Add(m.delta)
	if after.IsNegative() {
		if m.txType == transaction.TypeAdjustment {
			return Result{}, ErrNegativeBalance
		}
		return Result{}, user.ErrInsufficientBalance.Explain(
			"insufficient wallet balance: have %s, need %s", money.FormatUSD(before), money.FormatUSD(m.delta.Neg()))
	}

	now := s.now().UTC()
	userID := m.user.ID
	record := transaction.New(userID, m.txType, m.delta, m.description, m.meta, now)
	if err := tx.Transactions().Create(ctx, record); err != nil {
		return Result{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	entry, err := s.writer.Write(ctx, tx.Ledger(), ledger.EntryMeta{
		Type:          m.entryType,
		Description:   m.description,
		UserID:        &userID,
		TransactionID: &record.ID,
		Metadata: ledger.Metadata{
			IdempotencyKey:    m.meta.IdempotencyKey,
			ApprovalRequestID: m.approvalID,
			Reason:            m.reason,
		},
	}, m.postings)
	if err != nil {
		return Result{}, err
	}

	if err := tx.Transactions().Complete(ctx, record.ID, entry.ID); err != nil {
		return Result{}, fmt.Errorf("failed to complete transaction: %w", err)
	}
	if err := tx.Users().UpdateWalletBalance(ctx, userID, after); err != nil {
		return Result{}, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if err := tx.Audit().Append(ctx, audit.New(m.actorID, m.auditAction, audit.EntityUser, userID, audit.Changes{
		Amount:            audit.Dec(m.delta),
		BalanceBefore:     audit.Dec(before),
		BalanceAfter:      audit.Dec(after),
		TransactionID:     &record.ID,
		LedgerEntryID:     &entry.ID,
		ApprovalRequestID: m.approvalID,
		Reason:            m.reason,
	})); err != nil {
		return Result{}, fmt.Errorf("failed to append audit record: %w", err)
	}

	s.logger.WithContext(ctx).Info("wallet movement recorded",
		"operation", m.txType,
		"user_id", userID,
		"amount", m.delta.String(),
		"transaction_id", record.ID,
	)

	return Result{TransactionID: record.ID, NewBalance: after}, nil
}

func (s *Service) request(userID uuid.UUID, scope, key string, fingerprint any) (idempotency.Request, error) {
	req := idempotency.Request{UserID: userID, Scope: scope, Key: key}
	if key == "" {
		return req, nil
	}
	hash, err := idempotency.HashRequest(fingerprint)
	if err != nil {
		return req, err
	}
	req.RequestHash = hash
	return req, nil
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveOperation(operation, start, *err)
	}
}

func (s *Service) logRejected(ctx context.Context, operation string, userID uuid.UUID, err error) {
	s.logger.WithContext(ctx).WithError(err).Warn("wallet operation rejected", "operation", operation, "user_id", userID)
}
