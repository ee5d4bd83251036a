package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action names an audited operation
type Action string

const (
	ActionDeposit           Action = "WALLET_DEPOSIT"
	ActionWithdraw          Action = "WALLET_WITHDRAW"
	ActionWalletAdjustment  Action = "WALLET_ADJUSTMENT"
	ActionInvest            Action = "INVEST"
	ActionDistributePayouts Action = "DISTRIBUTE_PAYOUTS"
	ActionApprovalRequested Action = "APPROVAL_REQUESTED"
	ActionApprovalApproved  Action = "APPROVAL_APPROVED"
	ActionApprovalRejected  Action = "APPROVAL_REJECTED"
)

// Entity types
const (
	EntityUser            = "USER"
	EntityCommodity       = "COMMODITY"
	EntityInvestment      = "INVESTMENT"
	EntityApprovalRequest = "APPROVAL_REQUEST"
)

// Changes is the closed set of facts an audit record may carry
type Changes struct {
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	BalanceBefore     *decimal.Decimal `json:"balance_before,omitempty"`
	BalanceAfter      *decimal.Decimal `json:"balance_after,omitempty"`
	TransactionID     *uuid.UUID       `json:"transaction_id,omitempty"`
	LedgerEntryID     *uuid.UUID       `json:"ledger_entry_id,omitempty"`
	ApprovalRequestID *uuid.UUID       `json:"approval_request_id,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	StatusFrom        string           `json:"status_from,omitempty"`
	StatusTo          string           `json:"status_to,omitempty"`
	InvestorCount     int              `json:"investor_count,omitempty"`
	InvestmentCount   int              `json:"investment_count,omitempty"`
	TotalInvested     *decimal.Decimal `json:"total_invested,omitempty"`
	TotalPayout       *decimal.Decimal `json:"total_payout,omitempty"`
	Forced            bool             `json:"forced,omitempty"`
}

// Record is one append-only audit log row
type Record struct {
	ID          uuid.UUID
	ActorUserID uuid.UUID
	Action      Action
	EntityType  string
	EntityID    uuid.UUID
	Changes     Changes
	CreatedAt   time.Time
}

// New builds a record stamped with the current time
func New(actor uuid.UUID, action Action, entityType string, entityID uuid.UUID, changes Changes) *Record {
	return &Record{
		ID:          uuid.New(),
		ActorUserID: actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Changes:     changes,
		CreatedAt:   time.Now().UTC(),
	}
}

// Dec returns a pointer to a copy of d, for optional Changes fields
func Dec(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Filter defines filters for listing audit records
type Filter struct {
	EntityType string
	EntityID   *uuid.UUID
	Action     *Action
	Limit      int
}

// Sink appends audit records; writes join the caller's unit of work
type Sink interface {
	Append(ctx context.Context, r *Record) error
	List(ctx context.Context, filter Filter) ([]*Record, error)
}
