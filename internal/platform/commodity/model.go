package commodity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/pkg/money"
)

// Status is the lifecycle state of a commodity deal
type Status string

const (
	StatusFunding   Status = "FUNDING"
	StatusFunded    Status = "FUNDED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusArrived   Status = "ARRIVED"
	StatusReleased  Status = "RELEASED"
	StatusSettled   Status = "SETTLED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusFunding:   {StatusFunded, StatusCancelled},
	StatusFunded:    {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusArrived},
	StatusArrived:   {StatusReleased},
	StatusReleased:  {StatusSettled},
}

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusFunding, StatusFunded, StatusInTransit, StatusArrived, StatusReleased, StatusSettled, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an operator may move a deal from s to next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsPayoutEligible reports whether payouts may be distributed without forcing
func (s Status) IsPayoutEligible() bool {
	return s == StatusReleased
}

// Commodity is a fundable deal
type Commodity struct {
	ID             uuid.UUID
	Name           string
	Status         Status
	AmountRequired decimal.Decimal
	CurrentAmount  decimal.Decimal
	MinInvestment  decimal.Decimal
	APY            decimal.Decimal // percent per year
	DurationDays   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate validates the commodity definition
func (c *Commodity) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return ErrInvalidCommodity.Explain("name is required")
	case !money.IsPositive(c.AmountRequired):
		return ErrInvalidCommodity.Explain("amount required must be a positive USD amount")
	case c.MinInvestment.IsNegative() || money.ValidateUSD(c.MinInvestment) != nil:
		return ErrInvalidCommodity.Explain("minimum investment must be a non-negative USD amount")
	case c.MinInvestment.GreaterThan(c.AmountRequired):
		return ErrInvalidCommodity.Explain("minimum investment exceeds amount required")
	case money.ValidatePercent(c.APY) != nil:
		return ErrInvalidCommodity.Explain("apy must be a percentage between 0 and 10000")
	case c.DurationDays <= 0:
		return ErrInvalidCommodity.Explain("duration must be at least one day")
	case !c.Status.IsValid():
		return ErrInvalidStatus
	}
	return nil
}

// Remaining returns how much can still be invested
func (c *Commodity) Remaining() decimal.Decimal {
	return c.AmountRequired.Sub(c.CurrentAmount)
}

// Subscribe checks an investment of amount against the funding rules and
// returns the new current amount and status
func (c *Commodity) Subscribe(amount decimal.Decimal) (decimal.Decimal, Status, error) {
	if c.Status != StatusFunding {
		return c.CurrentAmount, c.Status, ErrNotFunding
	}
	if amount.LessThan(c.MinInvestment) {
		return c.CurrentAmount, c.Status, ErrBelowMinimum.Explain("minimum investment is %s", money.FormatUSD(c.MinInvestment))
	}

	next := c.CurrentAmount.Add(amount)
	if next.GreaterThan(c.AmountRequired) {
		return c.CurrentAmount, c.Status, ErrExceedsCap.Explain("only %s remains to be funded", money.FormatUSD(c.Remaining()))
	}

	status := c.Status
	if next.Equal(c.AmountRequired) {
		status = StatusFunded
	}
	return next, status, nil
}

// Filter defines filters for listing commodities
type Filter struct {
	Status *Status
	Limit  int
	Offset int
}
