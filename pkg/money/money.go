// Package money holds the decimal arithmetic shared by checkout, payouts and the Stripe gateway.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits every stored amount carries.
const Places = 2

var (
	hundred         = decimal.NewFromInt(100)
	platformFeeRate = decimal.RequireFromString("0.10")
)

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// ApplyDiscount returns price reduced by percent, rounded to two places.
func ApplyDiscount(price, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(percent.Div(hundred))
	return Round2(price.Mul(factor))
}

// PlatformFee is 10% of gross, rounded to two places.
func PlatformFee(gross decimal.Decimal) decimal.Decimal {
	return Round2(gross.Mul(platformFeeRate))
}

// Split returns the platform fee and the seller net for gross. Net is derived from the
// rounded fee so that fee + net == gross.
func Split(gross decimal.Decimal) (fee, net decimal.Decimal) {
	fee = PlatformFee(gross)
	return fee, gross.Sub(fee)
}

// ToMinorUnits converts a two-place amount into integer cents.
func ToMinorUnits(d decimal.Decimal) (int64, error) {
	cents := Round2(d).Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d, Places)
	}
	return cents.IntPart(), nil
}

// FromMinorUnits converts integer cents into a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-Places)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
