// Package invoice reconstructs a per-line tax breakdown from persisted
// order-level totals, for display only. It never recomputes the discount;
// the stored figures are the source of truth.
package invoice

import "github.com/shopspring/decimal"

// Line is an order line paired with its allocated share of the order tax.
type Line struct {
	LineTotal decimal.Decimal `json:"lineTotal"`
	Tax       decimal.Decimal `json:"allocatedTax"`
	Total     decimal.Decimal `json:"lineGrandTotal"`
}

// TotalTax derives the order tax from stored totals, floored at zero.
func TotalTax(subtotal, discount, grandTotal decimal.Decimal) decimal.Decimal {
	tax := grandTotal.Sub(subtotal).Add(discount)
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax
}

// Allocate distributes the order tax across line totals proportionally to each
// line's share of the stored subtotal, rounding each share to a whole currency
// unit. A zero stored subtotal allocates zero tax to every line.
//
// Independent per-line rounding means the allocated amounts need not sum
// exactly to the order tax; the discrepancy is bounded by one unit per line
// beyond the first and is intentionally left uncorrected.
func Allocate(lineTotals []decimal.Decimal, subtotal, discount, grandTotal decimal.Decimal) []Line {
	totalTax := TotalTax(subtotal, discount, grandTotal)
	out := make([]Line, 0, len(lineTotals))
	for _, lt := range lineTotals {
		tax := decimal.Zero
		if subtotal.IsPositive() {
			tax = lt.Mul(totalTax).Div(subtotal).Round(0)
		}
		out = append(out, Line{
			LineTotal: lt,
			Tax:       tax,
			Total:     lt.Add(tax),
		})
	}
	return out
}
