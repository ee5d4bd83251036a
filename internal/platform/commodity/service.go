package commodity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/pkg/logger"
)

// Service manages commodity definitions and operator-driven lifecycle moves.
// Funding and settlement transitions happen inside the investing and
// settlement units of work instead.
type Service struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new commodity service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.OrDiscard(log).WithComponent("commodity"),
		now:    time.Now,
	}
}

// CreateInput is the operator input for a new deal
type CreateInput struct {
	Name           string
	AmountRequired decimal.Decimal
	MinInvestment  decimal.Decimal
	APY            decimal.Decimal
	DurationDays   int
}

// Create opens a new deal for funding
func (s *Service) Create(ctx context.Context, in CreateInput) (*Commodity, error) {
	now := s.now().UTC()
	c := &Commodity{
		ID:             uuid.New(),
		Name:           in.Name,
		Status:         StatusFunding,
		AmountRequired: in.AmountRequired,
		CurrentAmount:  decimal.Zero,
		MinInvestment:  in.MinInvestment,
		APY:            in.APY,
		DurationDays:   in.DurationDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create commodity: %w", err)
	}

	s.logger.Info("commodity created", "commodity_id", c.ID, "amount_required", c.AmountRequired.String())
	return c, nil
}

// Get retrieves a commodity by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Commodity, error) {
	return s.store.GetByID(ctx, id)
}

// List lists commodities
func (s *Service) List(ctx context.Context, filter Filter) ([]*Commodity, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.store.List(ctx, filter)
}

// Transition moves a deal along its lifecycle. SETTLED is reached through
// payout distribution only.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, next Status) (*Commodity, error) {
	if !next.IsValid() {
		return nil, ErrInvalidStatus
	}
	if next == StatusSettled {
		return nil, ErrInvalidTransition.Explain("deals are settled by distributing payouts")
	}

	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition.Explain("cannot move commodity from %s to %s", c.Status, next)
	}

	ok, err := s.store.CompareAndSetStatus(ctx, id, c.Status, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update commodity status: %w", err)
	}
	if !ok {
		return nil, ErrInvalidTransition.Explain("commodity status changed concurrently")
	}

	s.logger.Info("commodity status changed", "commodity_id", id, "from", c.Status, "to", next)
	c.Status = next
	return c, nil
}
