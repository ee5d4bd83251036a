package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PercentagePlaces is the precision used for ownership fractions
const PercentagePlaces int32 = 10

// maxPercent bounds an annual yield
var maxPercent = decimal.NewFromInt(10000)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Fraction computes part / whole rounded to PercentagePlaces
// Returns zero when whole is not positive
func Fraction(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.DivRound(whole, PercentagePlaces)
}

// ProjectedReturn computes the simple-interest return of amount at apy percent over durationDays,
// rounded half-up to cents: amount * apy/100 * days/365
func ProjectedReturn(amount, apy decimal.Decimal, durationDays int) decimal.Decimal {
	if durationDays <= 0 || !apy.IsPositive() {
		return decimal.Zero
	}
	numerator := amount.Mul(apy).Mul(decimal.NewFromInt(int64(durationDays)))
	return numerator.DivRound(hundred.Mul(daysPerYear), Places)
}

// ParsePercent parses a non-negative percentage with at most PercentagePlaces
// decimals, below 10000
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("percentage is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percentage format: %w", err)
	}
	if err := ValidatePercent(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidatePercent checks that d is a non-negative percentage in range
func ValidatePercent(d decimal.Decimal) error {
	switch {
	case d.Exponent() > 4:
		return fmt.Errorf("percentage must be below %s", maxPercent)
	case d.Exponent() < -maxScale:
		return fmt.Errorf("percentage has more than %d decimal places", PercentagePlaces)
	case d.GreaterThanOrEqual(maxPercent):
		return fmt.Errorf("percentage must be below %s", maxPercent)
	case d.IsNegative():
		return fmt.Errorf("percentage cannot be negative")
	case !d.Equal(d.Truncate(PercentagePlaces)):
		return fmt.Errorf("percentage has more than %d decimal places", PercentagePlaces)
	}
	return nil
}
