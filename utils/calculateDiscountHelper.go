package utils

import (
	"github.com/shopspring/decimal"
)

const MoneyScale int32 = 2

var decimalOneHundred = decimal.NewFromInt(100)

// RoundMoney rounds half-to-even to two decimals. Every amount persisted by the booking flow passes here.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyScale)
}

// PercentOf returns round(total * percent / 100, 2).
func PercentOf(total decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(total.Mul(percent).Div(decimalOneHundred))
}

