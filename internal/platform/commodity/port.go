package commodity

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store defines commodity persistence
type Store interface {
	Create(ctx context.Context, c *Commodity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Commodity, error)

	// GetForUpdate retrieves a commodity and locks the row until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Commodity, error)

	List(ctx context.Context, filter Filter) ([]*Commodity, error)

	// UpdateFunding stores the subscribed amount and the status it implies
	UpdateFunding(ctx context.Context, id uuid.UUID, currentAmount decimal.Decimal, status Status) error

	// CompareAndSetStatus moves the commodity to next only if it is still in
	// from; reports whether the row was updated
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, next Status) (bool, error)
}
