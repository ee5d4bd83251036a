package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUSD_WholeNumber(t *testing.T) {
	result, err := ParseUSD("1100")
	require.NoError(t, err)
	assert.True(t, result.Equal(decimal.NewFromInt(1100)))
}

func TestParseUSD_WithCents(t *testing.T) {
	result, err := ParseUSD("0.05")
	require.NoError(t, err)
	assert.Equal(t, "0.05", result.String())
}

func TestParseUSD_TrimsWhitespace(t *testing.T) {
	result, err := ParseUSD("  42.10 ")
	require.NoError(t, err)
	assert.Equal(t, "42.10", FormatUSD(result))
}

func TestParseUSD_TooManyDecimals(t *testing.T) {
	_, err := ParseUSD("1.001")
	assert.Error(t, err)
}

func TestParseUSD_Empty(t *testing.T) {
	_, err := ParseUSD("")
	assert.Error(t, err)
}

func TestParseUSD_Garbage(t *testing.T) {
	_, err := ParseUSD("12abc")
	assert.Error(t, err)
}

func TestParseUSD_Bounds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"largest amount", "999999999999999999.99", true},
		{"negative largest amount", "-999999999999999999.99", true},
		{"ten to the eighteenth", "1000000000000000000", false},
		{"huge exponent", "1e30000000", false},
		{"zero with huge exponent", "0e30000000", false},
		{"tiny exponent", "1e-30000000", false},
		{"trailing zeros", "5.000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUSD(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsPositive_RejectsOversized(t *testing.T) {
	assert.False(t, IsPositive(decimal.New(1, 30000000)))
	assert.False(t, IsPositive(decimal.New(1, 18)))
	assert.True(t, IsPositive(decimal.New(1, 17)))
}

func TestParsePercent(t *testing.T) {
	d, err := ParsePercent("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	for _, bad := range []string{"", "abc", "-1", "10000", "1e9", "0.00000000001"} {
		_, err := ParsePercent(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive(decimal.RequireFromString("0.01")))
	assert.False(t, IsPositive(decimal.Zero))
	assert.False(t, IsPositive(decimal.RequireFromString("-5")))
	assert.False(t, IsPositive(decimal.RequireFromString("0.001")))
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "660.00", FormatUSD(decimal.NewFromInt(660)))
	assert.Equal(t, "0.10", FormatUSD(decimal.RequireFromString("0.1")))
}

func TestFraction(t *testing.T) {
	assert.Equal(t, "0.6", Fraction(decimal.NewFromInt(600), decimal.NewFromInt(1000)).String())
	assert.Equal(t, "0.3333333333", Fraction(decimal.NewFromInt(1), decimal.NewFromInt(3)).String())
	assert.True(t, Fraction(decimal.NewFromInt(1), decimal.Zero).IsZero())
}

func TestProjectedReturn(t *testing.T) {
	// 1000 at 12% for 365 days
	got := ProjectedReturn(decimal.NewFromInt(1000), decimal.NewFromInt(12), 365)
	assert.Equal(t, "120.00", FormatUSD(got))

	// 1000 at 10% for 90 days = 24.657... → 24.66
	got = ProjectedReturn(decimal.NewFromInt(1000), decimal.NewFromInt(10), 90)
	assert.Equal(t, "24.66", FormatUSD(got))

	assert.True(t, ProjectedReturn(decimal.NewFromInt(1000), decimal.NewFromInt(10), 0).IsZero())
}
