package shared

import "github.com/shopspring/decimal"

// PaymentTolerance is the band inside which two currency amounts are considered equal.
var PaymentTolerance = decimal.NewFromFloat(0.01)

// Round2 rounds a currency amount to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WithinTolerance reports whether two amounts are equal within PaymentTolerance after
// two-decimal rounding. Currency is never compared exactly.
func WithinTolerance(a, b decimal.Decimal) bool {
	return Round2(a).Sub(Round2(b)).Abs().LessThanOrEqual(PaymentTolerance)
}
