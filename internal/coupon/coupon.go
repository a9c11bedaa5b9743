package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type enumerates supported discount strategies.
type Type string

const (
	// TypePercent discounts a percentage of the eligible amount.
	TypePercent Type = "percent"
	// TypeFlat discounts a fixed amount.
	TypeFlat Type = "flat"
)

// Coupon is a promotional rule evaluated against a cart.
//
// Category and Subcategory scope the rule to matching cart lines; both are
// admin-controlled free text and compared case-insensitively. Subcategory is
// only meaningful when Category is set; a subcategory without a category is
// never checked.
type Coupon struct {
	ID             uuid.UUID        `json:"id"`
	Code           string           `json:"code"`
	Type           Type             `json:"discountType"`
	Value          decimal.Decimal  `json:"discountValue"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxDiscount    *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	Category       string           `json:"applicableCategory,omitempty"`
	Subcategory    string           `json:"applicableSubcategory,omitempty"`
	Active         bool             `json:"isActive"`
	ExpiresAt      *time.Time       `json:"expiryDate,omitempty"`
}

// Scoped reports whether the coupon is restricted to a category subset of the cart.
func (c Coupon) Scoped() bool {
	return strings.TrimSpace(c.Category) != ""
}

// Line is a cart line as seen by the coupon engine.
type Line struct {
	ProductID   uuid.UUID
	Category    string
	Subcategory string
	UnitPrice   decimal.Decimal
	Qty         int
}

// Total returns unit price multiplied by quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Subtotal sums line totals across the cart.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// NormalizeCode canonicalises a coupon code for comparison and display.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
