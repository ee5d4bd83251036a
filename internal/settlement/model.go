package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/transaction"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/pkg/money"
)

// ScopeDistribute is the idempotency scope of DistributePayouts
const ScopeDistribute = "settlement.distribute"

var (
	ErrInvalidRequest = apperrors.Validation("INVALID_PAYOUT_REQUEST", "commodity and a positive USD total payout are required")
	ErrNoInvestments  = apperrors.DomainGuard("NO_INVESTMENTS", "commodity has no active investments to pay out")
	ErrInvalidTotals  = apperrors.DomainGuard("INVALID_TOTALS", "total invested amount must be positive")
	ErrNotEligible    = apperrors.DomainGuard("COMMODITY_NOT_ELIGIBLE", "commodity is not in a state that allows payouts")
	// ErrAlreadyDistributed shares its code with the store-level unique
	// violation so both paths surface the same way
	ErrAlreadyDistributed = transaction.ErrDuplicatePayout
)

// DistributeRequest asks for the pro-rata distribution of TotalPayout across
// a commodity's investors. Force relaxes the lifecycle-state precondition only.
type DistributeRequest struct {
	ActorID        uuid.UUID
	CommodityID    uuid.UUID
	TotalPayout    decimal.Decimal
	MarkSettled    bool
	Force          bool
	IdempotencyKey string
}

// Validate validates the request before any unit of work starts
func (r DistributeRequest) Validate() error {
	if r.ActorID == uuid.Nil || r.CommodityID == uuid.Nil {
		return ErrInvalidRequest
	}
	if !money.IsPositive(r.TotalPayout) {
		return ErrInvalidRequest
	}
	return nil
}

// UserPayout is one investor's aggregated payout
type UserPayout struct {
	UserID          uuid.UUID       `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	InvestmentCount int             `json:"investment_count"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
}

// DistributeResult is either an applied distribution or a pending approval
type DistributeResult struct {
	RequiresApproval  bool            `json:"requires_approval"`
	ApprovalRequestID *uuid.UUID      `json:"approval_request_id,omitempty"`
	InvestorCount     int             `json:"investor_count"`
	InvestmentCount   int             `json:"investment_count"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	TotalPayout       decimal.Decimal `json:"total_payout"`
	LedgerEntryID     *uuid.UUID      `json:"ledger_entry_id,omitempty"`
	Payouts           []UserPayout    `json:"payouts,omitempty"`
}

type fingerprint struct {
	CommodityID uuid.UUID `json:"commodity_id"`
	TotalPayout string    `json:"total_payout"`
	MarkSettled bool      `json:"mark_settled"`
	Force       bool      `json:"force"`
}
