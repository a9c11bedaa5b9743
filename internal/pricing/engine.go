package pricing

import "github.com/shopspring/decimal"

// DefaultTaxRate is the flat tax rate applied to the taxable amount.
var DefaultTaxRate = decimal.RequireFromString("0.18")

// Item describes a line item used for totals calculation.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// Summary aggregates the computed pricing components for a cart.
//
// Tax is the rounded tax line shown to the shopper and is informational;
// Total is produced by a single rounding of taxable plus the unrounded tax,
// so it never drifts from the tax line by more than a unit.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discountAmount"`
	Taxable  decimal.Decimal `json:"taxableAmount"`
	Tax      decimal.Decimal `json:"taxAmount"`
	Total    decimal.Decimal `json:"grandTotal"`
}

// Subtotal sums quantity times unit price across items, skipping non-positive
// quantities.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum
}

// Compute derives the cart totals from the items, the applied discount and the
// tax rate.
//
// The taxable amount is floored at zero: a discount exceeding the subtotal
// (possible for an unclamped catalog-wide flat coupon) yields a zero total
// rather than a negative one. Negative discounts are treated as zero.
func Compute(items []Item, discount decimal.Decimal, taxRate decimal.Decimal) Summary {
	subtotal := Subtotal(items)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(taxRate)
	total := taxable.Add(tax).Round(0)
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Taxable:  taxable,
		Tax:      tax.Round(0),
		Total:    total,
	}
}
