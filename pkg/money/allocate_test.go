package money

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sumOf(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func TestAllocateProRata_EvenSplit(t *testing.T) {
	shares, err := AllocateProRata(d("1100"), []decimal.Decimal{d("600"), d("400")})
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "660.00", FormatUSD(shares[0]))
	assert.Equal(t, "440.00", FormatUSD(shares[1]))
}

func TestAllocateProRata_LargestRemainder(t *testing.T) {
	shares, err := AllocateProRata(d("100"), []decimal.Decimal{d("1"), d("1"), d("1")})
	require.NoError(t, err)
	assert.Equal(t, "33.34", FormatUSD(shares[0]))
	assert.Equal(t, "33.33", FormatUSD(shares[1]))
	assert.Equal(t, "33.33", FormatUSD(shares[2]))
	assert.True(t, sumOf(shares).Equal(d("100")))
}

func TestAllocateProRata_RemainderGoesToLargestFraction(t *testing.T) {
	// 10.00 over 1:2 → 3.333.. / 6.666..; the cent goes to the second share
	shares, err := AllocateProRata(d("10"), []decimal.Decimal{d("1"), d("2")})
	require.NoError(t, err)
	assert.Equal(t, "3.33", FormatUSD(shares[0]))
	assert.Equal(t, "6.67", FormatUSD(shares[1]))
}

func TestAllocateProRata_ZeroWeightGetsNothing(t *testing.T) {
	shares, err := AllocateProRata(d("50"), []decimal.Decimal{d("0"), d("5")})
	require.NoError(t, err)
	assert.True(t, shares[0].IsZero())
	assert.True(t, shares[1].Equal(d("50")))
}

func TestAllocateProRata_Errors(t *testing.T) {
	_, err := AllocateProRata(d("10"), nil)
	assert.Error(t, err)

	_, err = AllocateProRata(d("10"), []decimal.Decimal{d("0"), d("0")})
	assert.Error(t, err)

	_, err = AllocateProRata(d("-1"), []decimal.Decimal{d("1")})
	assert.Error(t, err)

	_, err = AllocateProRata(d("1.005"), []decimal.Decimal{d("1")})
	assert.Error(t, err)

	_, err = AllocateProRata(d("1"), []decimal.Decimal{d("-1"), d("2")})
	assert.Error(t, err)
}

func TestAllocateProRata_RandomizedConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := rng.Intn(12) + 1
		weights := make([]decimal.Decimal, n)
		for j := range weights {
			weights[j] = decimal.New(rng.Int63n(10_000_000)+1, -2)
		}
		total := decimal.New(rng.Int63n(100_000_000), -2)

		shares, err := AllocateProRata(total, weights)
		require.NoError(t, err)
		require.True(t, sumOf(shares).Equal(total), "iteration %d: %s != %s", i, sumOf(shares), total)

		// Each share is within one cent of its exact proportional value
		sum := sumOf(weights)
		for j, s := range shares {
			exact := total.Mul(weights[j]).Div(sum)
			assert.True(t, s.Sub(exact).Abs().LessThan(d("0.01")), "share %s vs exact %s", s, exact)
		}
	}
}
