package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rudraveda/backend-store/internal/coupon"
	"github.com/rudraveda/backend-store/internal/pricing"
)

// Cart is a server-backed cart for a registered user or an anonymous session.
//
// AppliedCouponCode and CouponRemoved persist the auto-apply session state
// between requests: the code of the committed coupon (empty when none) and the
// sticky manual-removal flag.
type Cart struct {
	ID                uuid.UUID  `json:"id"`
	UserID            *uuid.UUID `json:"userId,omitempty"`
	AnonID            string     `json:"anonId,omitempty"`
	AppliedCouponCode string     `json:"appliedCouponCode,omitempty"`
	CouponRemoved     bool       `json:"-"`
	ExpiresAt         time.Time  `json:"-"`
}

// Item is one cart line. Category and subcategory are denormalised from the
// product at add time so pricing never needs a catalog join.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Qty         int             `json:"qty"`
}

// Total returns the line total.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// CouponLines adapts cart items for the coupon engine.
func CouponLines(items []Item) []coupon.Line {
	lines := make([]coupon.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, coupon.Line{
			ProductID:   it.ProductID,
			Category:    it.Category,
			Subcategory: it.Subcategory,
			UnitPrice:   it.UnitPrice,
			Qty:         it.Qty,
		})
	}
	return lines
}

// PricingItems adapts cart items for the totals calculator.
func PricingItems(items []Item) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{Qty: it.Qty, UnitPrice: it.UnitPrice})
	}
	return out
}

// Session reconstructs the coupon session persisted on the cart row.
func (c Cart) Session() coupon.Session {
	return coupon.Session{ManuallyRemoved: c.CouponRemoved}
}
