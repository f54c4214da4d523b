// Package fixedpoint converts the raw fixed-point integers used on chain
// into exact decimal values and back.
package fixedpoint

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// IndexDecimals is the fractional-digit count of staked-token conversion
// indexes (gOHM index()).
const IndexDecimals = 9

// ToDecimal interprets raw as a fixed-point integer with the given number
// of fractional digits and returns the exact decimal value.
func ToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// FromDecimal scales d by 10^decimals and truncates to an integer,
// inverting ToDecimal for representable inputs.
func FromDecimal(d decimal.Decimal, decimals int32) *big.Int {
	return d.Shift(decimals).Truncate(0).BigInt()
}

// Percentage converts a raw fixed-point rate into a percentage:
// decimal value times 100. A raw 5e15 at 18 decimals yields 0.5.
func Percentage(raw *big.Int, decimals int32) decimal.Decimal {
	return ToDecimal(raw, decimals).Mul(decimal.NewFromInt(100))
}

// Date formats a Unix timestamp as a UTC calendar date.
func Date(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}
