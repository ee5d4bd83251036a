package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the single settlement currency of the platform
const Currency = "USD"

// Places is the number of decimal places a USD amount may carry
const Places int32 = 2

// ParseUSD converts a human-readable amount string to a decimal
// "1100" → 1100, "0.05" → 0.05; more than two fractional digits is rejected
// rather than rounded so no value is silently lost
func ParseUSD(amountStr string) (decimal.Decimal, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format: %w", err)
	}

	if err := ValidateUSD(d); err != nil {
		return decimal.Zero, err
	}

	return d, nil
}

// MaxDigits bounds the integer part of an amount; NUMERIC(20,2) holds 18
const MaxDigits int32 = 18

// maxScale bounds how many fractional digits an input may spell out,
// trailing zeros included
const maxScale int32 = 18

var maxUSD = decimal.New(1, MaxDigits)

// ValidateUSD checks that d is representable in whole cents and below 10^18.
// The exponent is checked first so absurd inputs such as "1e30000000" are
// rejected before any rescaling.
func ValidateUSD(d decimal.Decimal) error {
	switch {
	case d.Exponent() > MaxDigits:
		return fmt.Errorf("amount exceeds %d integer digits", MaxDigits)
	case d.Exponent() < -maxScale:
		return fmt.Errorf("amount has more than %d fractional digits", maxScale)
	case d.Abs().GreaterThanOrEqual(maxUSD):
		return fmt.Errorf("amount exceeds %d integer digits", MaxDigits)
	case !d.Equal(d.Truncate(Places)):
		return fmt.Errorf("amount %s has more than %d decimal places", d.String(), Places)
	}
	return nil
}

// IsPositive reports whether d is a valid, strictly positive USD amount
func IsPositive(d decimal.Decimal) bool {
	return d.IsPositive() && ValidateUSD(d) == nil
}

// FormatUSD renders d with exactly two decimal places
// E.g., 660 → "660.00"
func FormatUSD(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
