package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/harvestline/backend/internal/shared/errors"
)

// Type is the business reason of a transaction
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeInvestment Type = "INVESTMENT"
	TypeDividend   Type = "DIVIDEND"
	TypePayout     Type = "PAYOUT"
	TypeRefund     Type = "REFUND"
	TypeAdjustment Type = "ADJUSTMENT"
)

// Status is the processing state of a transaction
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrTransactionNotFound = apperrors.New(apperrors.KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")
	// ErrDuplicatePayout is returned by stores that enforce one PAYOUT per user and commodity
	ErrDuplicatePayout = apperrors.DomainGuard("PAYOUTS_ALREADY_DISTRIBUTED", "payouts were already distributed for this commodity")
)

// Metadata is the closed set of annotations a transaction may carry
type Metadata struct {
	IdempotencyKey    string     `json:"idempotency_key,omitempty"`
	InvestmentID      *uuid.UUID `json:"investment_id,omitempty"`
	ApprovalRequestID *uuid.UUID `json:"approval_request_id,omitempty"`
	ActorUserID       *uuid.UUID `json:"actor_user_id,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	InvestmentCount   int        `json:"investment_count,omitempty"`
}

// Transaction is a business-level money movement for one user. Amount is
// signed from the user's wallet perspective.
type Transaction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CommodityID   *uuid.UUID
	Type          Type
	Amount        decimal.Decimal
	Status        Status
	Description   string
	Metadata      Metadata
	LedgerEntryID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New builds a PENDING transaction
func New(userID uuid.UUID, t Type, amount decimal.Decimal, description string, meta Metadata, now time.Time) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        t,
		Amount:      amount,
		Status:      StatusPending,
		Description: description,
		Metadata:    meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Filter defines filters for listing transactions
type Filter struct {
	UserID      *uuid.UUID
	CommodityID *uuid.UUID
	Type        *Type
	Limit       int
	Offset      int
}

// Store defines transaction persistence
type Store interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, filter Filter) ([]*Transaction, error)

	// Complete marks a PENDING transaction COMPLETED and links its ledger entry
	Complete(ctx context.Context, id uuid.UUID, ledgerEntryID uuid.UUID) error

	// ExistsForCommodity reports whether any transaction of type t exists for the commodity
	ExistsForCommodity(ctx context.Context, commodityID uuid.UUID, t Type) (bool, error)
}
