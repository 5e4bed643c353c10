// Package price provides fixed-point price normalization and rendering.
//
// All feeds report values in their own native precision; before
// combination every value is rescaled into one canonical precision.
// Prices are carried as *big.Int so realistic magnitudes at 18 fractional
// digits never overflow.
package price

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Normalize rescales raw from nativeDecimals to canonicalDecimals.
// Upscaling multiplies by a power of ten; downscaling divides with
// truncation toward zero, losing the excess fractional digits.
func Normalize(raw *big.Int, nativeDecimals, canonicalDecimals uint8) *big.Int {
	if raw == nil {
		return new(big.Int)
	}
	switch {
	case nativeDecimals == canonicalDecimals:
		return new(big.Int).Set(raw)
	case nativeDecimals < canonicalDecimals:
		return new(big.Int).Mul(raw, pow10(canonicalDecimals-nativeDecimals))
	default:
		return new(big.Int).Quo(raw, pow10(nativeDecimals-canonicalDecimals))
	}
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Render formats a canonical fixed-point value as a human-readable
// decimal string.
func Render(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
