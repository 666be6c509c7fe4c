// Package points converts between the platform's virtual currency and real money.
// The fixed rate is 10 points per US dollar.
package points

import (
	"errors"

	"github.com/shopspring/decimal"
)

const PerDollar = 10

var ErrNotPurchaseable = errors.New("points must be a positive multiple of 10")

// ValidatePurchase enforces the checkout granularity: whole dollars only.
func ValidatePurchase(amount int64) error {
	if amount <= 0 || amount%PerDollar != 0 {
		return ErrNotPurchaseable
	}
	return nil
}

// DollarCents returns the charge amount in cents for a points purchase.
func DollarCents(amount int64) int64 {
	return decimal.NewFromInt(amount).
		Div(decimal.NewFromInt(PerDollar)).
		Mul(decimal.NewFromInt(100)).
		RoundBank(0).
		IntPart()
}

// FormatDollars renders a points amount as a dollar string, e.g. 250 -> "25.00".
func FormatDollars(amount int64) string {
	return decimal.NewFromInt(DollarCents(amount)).
		Div(decimal.NewFromInt(100)).
		StringFixedBank(2)
}
