// Package money converts between decimal currency amounts and the integer
// minor units used on the payment gateway boundary.
package money

import (
	"math"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToMinorUnits converts an amount to cents. Non-positive results and values
// that do not fit into int64 are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	cents := amount.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, domain.Invalid("amount", "must be positive, got %s", amount.String())
	}
	if cents.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, domain.Invalid("amount", "too large")
	}
	return cents.IntPart(), nil
}

// FromMinorUnits converts cents back to a 2dp amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
