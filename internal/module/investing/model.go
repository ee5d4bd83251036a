package investing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/commodity"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/pkg/money"
)

// ScopeInvest is the idempotency scope of Invest
const ScopeInvest = "investing.invest"

var (
	ErrAcknowledgementRequired = apperrors.Validation("ACKNOWLEDGEMENT_REQUIRED", "risk and terms must both be acknowledged")
	ErrInvalidAmount           = apperrors.Validation("INVALID_AMOUNT", "amount must be a positive USD amount with at most two decimals")
	ErrInvalidTarget           = apperrors.Validation("INVALID_TARGET", "user and commodity are required")
)

// InvestInput subscribes a user to a commodity deal
type InvestInput struct {
	UserID         uuid.UUID
	CommodityID    uuid.UUID
	Amount         decimal.Decimal
	AckRisk        bool
	AckTerms       bool
	IdempotencyKey string
}

// Validate validates the input before any unit of work starts
func (in InvestInput) Validate() error {
	if in.UserID == uuid.Nil || in.CommodityID == uuid.Nil {
		return ErrInvalidTarget
	}
	if !in.AckRisk || !in.AckTerms {
		return ErrAcknowledgementRequired
	}
	if !money.IsPositive(in.Amount) {
		return ErrInvalidAmount
	}
	return nil
}

// Result is the outcome of an investment
type Result struct {
	InvestmentID     uuid.UUID        `json:"investment_id"`
	TransactionID    uuid.UUID        `json:"transaction_id"`
	NewCurrentAmount decimal.Decimal  `json:"new_current_amount"`
	CommodityStatus  commodity.Status `json:"commodity_status"`
	NewBalance       decimal.Decimal  `json:"new_balance"`
	Percentage       decimal.Decimal  `json:"percentage"`
	ProjectedReturn  decimal.Decimal  `json:"projected_return"`
}

type fingerprint struct {
	CommodityID uuid.UUID `json:"commodity_id"`
	Amount      string    `json:"amount"`
}
