// Package currency formats revenue figures for display.
package currency

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatBRL renders amount as Brazilian Real, e.g. R$1.234,56. Amounts are rounded half
// away from zero to centavos.
func FormatBRL(amount decimal.Decimal) string {
	return Format(amount, money.BRL)
}

// Format renders amount in the given ISO 4217 currency. Unknown codes fall back to the
// plain decimal string.
func Format(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2)
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, code).Display()
}
