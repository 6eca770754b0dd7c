package utils

import "github.com/shopspring/decimal"

// MoneyTolerance is the largest difference accepted between two amounts that should match.
var MoneyTolerance = decimal.NewFromFloat(0.01)

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MoneyEqual reports whether a and b differ by at most MoneyTolerance.
func MoneyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MoneyTolerance)
}
