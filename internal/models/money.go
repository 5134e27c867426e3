package models

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept for monetary amounts.
const MoneyPlaces = 2

// MaxMoney is the largest storable monetary amount.
var MaxMoney = decimal.RequireFromString("999999.99")

// RoundMoney rounds half away from zero to two decimals.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ClampMoney rounds d to two decimals and clamps it into [0, MaxMoney].
func ClampMoney(d decimal.Decimal) decimal.Decimal {
	d = RoundMoney(d)
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(MaxMoney) {
		return MaxMoney
	}
	return d
}
