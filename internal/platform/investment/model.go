package investment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/harvestline/backend/internal/shared/errors"
)

// Status is the settlement state of an investment
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusSettled Status = "SETTLED"
)

var ErrInvestmentNotFound = apperrors.New(apperrors.KindNotFound, "INVESTMENT_NOT_FOUND", "investment not found")

// Investment is a user's stake in a commodity. Percentage and ProjectedReturn
// are fixed at creation; ActualReturn is set once, at settlement.
type Investment struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	CommodityID     uuid.UUID
	Amount          decimal.Decimal
	Percentage      decimal.Decimal
	ProjectedReturn decimal.Decimal
	ActualReturn    *decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	SettledAt       *time.Time
}

// Store defines investment persistence
type Store interface {
	Create(ctx context.Context, inv *Investment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Investment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Investment, error)

	// ListByCommodityForUpdate returns every investment of a commodity in
	// creation order, locking the rows until the transaction ends
	ListByCommodityForUpdate(ctx context.Context, commodityID uuid.UUID) ([]*Investment, error)

	// MarkSettled sets the actual return and SETTLED status of an ACTIVE investment
	MarkSettled(ctx context.Context, id uuid.UUID, actualReturn decimal.Decimal, at time.Time) error
}
