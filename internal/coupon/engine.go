package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no coupon matches the requested code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been disabled.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon's expiry date has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumOrderUnmet indicates the cart subtotal did not reach the coupon threshold.
	ErrMinimumOrderUnmet = errors.New("coupon minimum order not met")
	// ErrNotApplicable indicates no cart line falls within the coupon's scope,
	// or the coupon yields no discount.
	ErrNotApplicable = errors.New("coupon not applicable to cart")
)

var hundred = decimal.NewFromInt(100)

// Applied is the outcome of evaluating a coupon against a cart.
type Applied struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discountAmount"`
	Basis    decimal.Decimal `json:"eligibleAmountBasis"`
}

// EligibleBasis decides whether the coupon may apply to the cart and returns
// the eligible amount basis the discount is computed against: the whole-cart
// subtotal for catalog-wide coupons, or the sum of matching line totals for
// category-scoped ones.
//
// The minimum order threshold is always compared against the whole-cart
// subtotal, never the scoped subset.
func EligibleBasis(c Coupon, lines []Line, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.Active {
		return decimal.Zero, ErrInactive
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return decimal.Zero, ErrExpired
	}
	if c.MinOrderAmount != nil && subtotal.LessThan(*c.MinOrderAmount) {
		return decimal.Zero, ErrMinimumOrderUnmet
	}
	if !c.Scoped() {
		return subtotal, nil
	}
	basis := decimal.Zero
	matched := false
	for _, l := range lines {
		if !scopeMatches(l.Category, c.Category) {
			continue
		}
		if strings.TrimSpace(c.Subcategory) != "" && !scopeMatches(l.Subcategory, c.Subcategory) {
			continue
		}
		basis = basis.Add(l.Total())
		matched = true
	}
	if !matched {
		return decimal.Zero, ErrNotApplicable
	}
	return basis, nil
}

// scopeMatches compares category values case-insensitively, accepting either
// an exact match or a substring one. Category names are admin-controlled free
// text, so the looser comparison is kept on purpose.
func scopeMatches(value, want string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	want = strings.ToLower(strings.TrimSpace(want))
	if value == "" || want == "" {
		return false
	}
	return value == want || strings.Contains(value, want)
}

// DiscountFor computes the monetary discount an eligible coupon yields from
// its eligible amount basis.
//
// Percent discounts are capped by MaxDiscount when set. Flat discounts are
// clamped to the basis only when the coupon is category-scoped; a catalog-wide
// flat discount may exceed the subtotal, which the totals calculator later
// floors to a zero taxable amount.
func DiscountFor(c Coupon, basis decimal.Decimal) decimal.Decimal {
	if basis.IsNegative() {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch c.Type {
	case TypePercent:
		discount = basis.Mul(c.Value).Div(hundred)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case TypeFlat:
		discount = c.Value
		if c.Scoped() && discount.GreaterThan(basis) {
			discount = basis
		}
	default:
		return decimal.Zero
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// Evaluate runs eligibility and discount computation for a single coupon.
// It fails with ErrNotApplicable when the coupon yields no positive discount.
func Evaluate(c Coupon, lines []Line, now time.Time) (Applied, error) {
	subtotal := Subtotal(lines)
	basis, err := EligibleBasis(c, lines, subtotal, now)
	if err != nil {
		return Applied{}, err
	}
	discount := DiscountFor(c, basis)
	if !discount.IsPositive() {
		return Applied{}, ErrNotApplicable
	}
	return Applied{Code: NormalizeCode(c.Code), Discount: discount, Basis: basis}, nil
}

// SelectBest evaluates every coupon in catalog order and returns the one with
// the greatest discount, or nil when no coupon yields a positive discount.
//
// The running maximum uses strict greater-than, so on ties the coupon
// appearing earlier in the catalog wins. Callers must therefore pass the
// catalog in its natural order.
func SelectBest(catalog []Coupon, lines []Line, now time.Time) *Applied {
	subtotal := Subtotal(lines)
	var best *Applied
	for _, c := range catalog {
		basis, err := EligibleBasis(c, lines, subtotal, now)
		if err != nil {
			continue
		}
		discount := DiscountFor(c, basis)
		if !discount.IsPositive() {
			continue
		}
		if best == nil || discount.GreaterThan(best.Discount) {
			best = &Applied{Code: NormalizeCode(c.Code), Discount: discount, Basis: basis}
		}
	}
	return best
}

// FindByCode locates a coupon in the catalog by case-insensitive code match.
func FindByCode(catalog []Coupon, code string) (Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Coupon{}, ErrNotFound
	}
	for _, c := range catalog {
		if NormalizeCode(c.Code) == normalized {
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
}
