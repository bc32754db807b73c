package ledger

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FallbackScale is used for currencies go-money does not know, such as
// token symbols of wallet accounts.
const FallbackScale int32 = 2

// DefaultScale returns the minor-unit scale of an ISO currency code
func DefaultScale(currency string) int32 {
	c := money.GetCurrency(strings.ToUpper(strings.TrimSpace(currency)))
	if c == nil {
		return FallbackScale
	}
	return int32(c.Fraction)
}

// ToMinor converts a major-unit amount to minor units at scale
func ToMinor(amount decimal.Decimal, scale int32) int64 {
	return amount.Round(scale).Shift(scale).IntPart()
}

// ToMajor converts minor units at scale back to a major-unit amount
func ToMajor(units int64, scale int32) decimal.Decimal {
	return decimal.New(units, -scale)
}

// EqualAtScale reports whether a major-unit amount equals units at scale
func EqualAtScale(amount decimal.Decimal, units int64, scale int32) bool {
	return ToMinor(amount, scale) == units
}

// Format renders minor units for display. ISO currencies go through go-money;
// anything else is printed as a plain decimal followed by the code.
func Format(units int64, currency string, scale int32) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if c := money.GetCurrency(code); c != nil && int32(c.Fraction) == scale {
		return money.New(units, code).Display()
	}
	s := ToMajor(units, scale).StringFixed(scale)
	if code == "" {
		return s
	}
	return s + " " + code
}
