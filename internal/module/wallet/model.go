package wallet

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/pkg/money"
)

// Idempotency scopes
const (
	ScopeDeposit  = "wallet.deposit"
	ScopeWithdraw = "wallet.withdraw"
	ScopeAdjust   = "wallet.adjust"
)

// DepositInput credits external cash to a user's wallet
type DepositInput struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Validate validates the deposit input
func (in DepositInput) Validate() error {
	if in.UserID == uuid.Nil {
		return ErrInvalidUser
	}
	if !money.IsPositive(in.Amount) {
		return ErrInvalidAmount
	}
	return nil
}

// WithdrawInput pays cash out of a user's wallet
type WithdrawInput = DepositInput

// AdjustInput is an admin correction of a user's wallet; Amount is signed
type AdjustInput struct {
	ActorID        uuid.UUID
	TargetUserID   uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
}

// Validate validates the adjustment input
func (in AdjustInput) Validate() error {
	if in.ActorID == uuid.Nil || in.TargetUserID == uuid.Nil {
		return ErrInvalidUser
	}
	if in.Amount.IsZero() || money.ValidateUSD(in.Amount) != nil {
		return ErrInvalidAdjustment
	}
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// Result is the outcome of a wallet movement
type Result struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// AdjustResult is either an applied adjustment or a pending approval
type AdjustResult struct {
	TransactionID     *uuid.UUID       `json:"transaction_id,omitempty"`
	NewBalance        *decimal.Decimal `json:"new_balance,omitempty"`
	RequiresApproval  bool             `json:"requires_approval"`
	ApprovalRequestID *uuid.UUID       `json:"approval_request_id,omitempty"`
}

// fingerprints hashed for idempotency; amounts normalized to cents
type movementFingerprint struct {
	Amount string `json:"amount"`
}

type adjustFingerprint struct {
	TargetUserID uuid.UUID `json:"target_user_id"`
	Amount       string    `json:"amount"`
	Reason       string    `json:"reason"`
}
