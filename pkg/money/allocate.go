package money

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// AllocateProRata splits total across weights proportionally, in whole cents
//
// Each share is floor(total * w_i / Σw) cents; the cents left over by flooring
// are handed out one at a time to the shares with the largest remainders
// (ties go to the earlier weight). The result always sums exactly to total.
func AllocateProRata(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("no weights to allocate across")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total cannot be negative")
	}
	if err := ValidateUSD(total); err != nil {
		return nil, err
	}

	sum := decimal.Zero
	for i, w := range weights {
		if w.IsNegative() {
			return nil, fmt.Errorf("weight %d is negative", i)
		}
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, fmt.Errorf("weights must sum to a positive value")
	}

	totalCents := total.Shift(Places)

	type share struct {
		index     int
		cents     decimal.Decimal
		remainder decimal.Decimal
	}

	shares := make([]share, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		q, r := totalCents.Mul(w).QuoRem(sum, 0)
		shares[i] = share{index: i, cents: q, remainder: r}
		allocated = allocated.Add(q)
	}

	leftover := totalCents.Sub(allocated).IntPart()
	if leftover > 0 {
		order := make([]int, len(shares))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return shares[order[a]].remainder.GreaterThan(shares[order[b]].remainder)
		})
		for k := int64(0); k < leftover; k++ {
			idx := order[k%int64(len(order))]
			shares[idx].cents = shares[idx].cents.Add(decimal.NewFromInt(1))
		}
	}

	result := make([]decimal.Decimal, len(shares))
	for i, s := range shares {
		result[i] = s.cents.Shift(-Places)
	}
	return result, nil
}
