package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func line(category, subcategory, unitPrice string, qty int) Line {
	return Line{Category: category, Subcategory: subcategory, UnitPrice: dec(unitPrice), Qty: qty}
}

func TestPercentCatalogWide(t *testing.T) {
	catalog := []Coupon{{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true}}
	lines := []Line{line("Mala", "", "1000", 1)}

	best := SelectBest(catalog, lines, now)
	if best == nil {
		t.Fatal("expected a coupon to be selected")
	}
	if !best.Discount.Equal(dec("100")) {
		t.Fatalf("expected discount 100, got %s", best.Discount)
	}
	if !best.Basis.Equal(dec("1000")) {
		t.Fatalf("expected basis 1000, got %s", best.Basis)
	}
}

func TestPercentCategoryScoped(t *testing.T) {
	catalog := []Coupon{{Code: "RUDRA20", Type: TypePercent, Value: dec("20"), Category: "Rudraksha", Active: true}}
	lines := []Line{
		line("Rudraksha", "5 Mukhi", "400", 1),
		line("Gemstones", "", "600", 1),
	}

	best := SelectBest(catalog, lines, now)
	if best == nil {
		t.Fatal("expected a coupon to be selected")
	}
	if !best.Basis.Equal(dec("400")) {
		t.Fatalf("expected basis 400, got %s", best.Basis)
	}
	if !best.Discount.Equal(dec("80")) {
		t.Fatalf("expected discount 80, got %s", best.Discount)
	}
}

func TestMinimumOrderComparedAgainstWholeCart(t *testing.T) {
	c := Coupon{Code: "MIN2000", Type: TypePercent, Value: dec("50"), MinOrderAmount: decPtr("2000"), Active: true}
	lines := []Line{line("Mala", "", "1500", 1)}

	if _, err := EligibleBasis(c, lines, Subtotal(lines), now); !errors.Is(err, ErrMinimumOrderUnmet) {
		t.Fatalf("expected ErrMinimumOrderUnmet, got %v", err)
	}
	if best := SelectBest([]Coupon{c}, lines, now); best != nil {
		t.Fatalf("coupon below minimum must never be selected, got %s", best.Code)
	}
}

func TestFlatCatalogWideUnclamped(t *testing.T) {
	c := Coupon{Code: "FLAT500", Type: TypeFlat, Value: dec("500"), Active: true}
	lines := []Line{line("Mala", "", "300", 1)}

	discount := DiscountFor(c, Subtotal(lines))
	if !discount.Equal(dec("500")) {
		t.Fatalf("catalog-wide flat discount must stay unclamped, got %s", discount)
	}
}

func TestFlatScopedClampedToBasis(t *testing.T) {
	c := Coupon{Code: "FLAT500", Type: TypeFlat, Value: dec("500"), Category: "Rudraksha", Active: true}

	discount := DiscountFor(c, dec("300"))
	if !discount.Equal(dec("300")) {
		t.Fatalf("scoped flat discount must be clamped to basis, got %s", discount)
	}
}

func TestPercentCapAppliesToPercentOnly(t *testing.T) {
	percent := Coupon{Code: "BIG50", Type: TypePercent, Value: dec("50"), MaxDiscount: decPtr("100"), Active: true}
	if got := DiscountFor(percent, dec("1000")); !got.Equal(dec("100")) {
		t.Fatalf("expected capped discount 100, got %s", got)
	}

	flat := Coupon{Code: "FLAT200", Type: TypeFlat, Value: dec("200"), MaxDiscount: decPtr("100"), Active: true}
	if got := DiscountFor(flat, dec("1000")); !got.Equal(dec("200")) {
		t.Fatalf("flat discount must ignore the cap, got %s", got)
	}
}

func TestInactiveAndExpired(t *testing.T) {
	lines := []Line{line("Mala", "", "1000", 1)}
	subtotal := Subtotal(lines)

	inactive := Coupon{Code: "OFF", Type: TypePercent, Value: dec("10")}
	if _, err := EligibleBasis(inactive, lines, subtotal, now); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}

	past := now.Add(-time.Hour)
	expired := Coupon{Code: "OLD", Type: TypePercent, Value: dec("10"), Active: true, ExpiresAt: &past}
	if _, err := EligibleBasis(expired, lines, subtotal, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestScopedCouponWithNoMatchingLines(t *testing.T) {
	c := Coupon{Code: "RUDRA20", Type: TypePercent, Value: dec("20"), Category: "Rudraksha", Active: true}
	lines := []Line{line("Gemstones", "", "900", 1)}

	if _, err := EligibleBasis(c, lines, Subtotal(lines), now); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
}

func TestSubcategoryWithoutCategoryIsIgnored(t *testing.T) {
	// A subcategory constraint without a category is treated as catalog-wide.
	c := Coupon{Code: "SUBONLY", Type: TypePercent, Value: dec("10"), Subcategory: "5 Mukhi", Active: true}
	lines := []Line{line("Gemstones", "Emerald", "1000", 1)}

	basis, err := EligibleBasis(c, lines, Subtotal(lines), now)
	if err != nil {
		t.Fatalf("expected eligibility, got %v", err)
	}
	if !basis.Equal(dec("1000")) {
		t.Fatalf("expected whole-cart basis, got %s", basis)
	}
}

func TestSubcategoryScopedWithinCategory(t *testing.T) {
	c := Coupon{Code: "MUKHI5", Type: TypePercent, Value: dec("10"), Category: "Rudraksha", Subcategory: "5 Mukhi", Active: true}
	lines := []Line{
		line("Rudraksha", "5 Mukhi", "400", 1),
		line("Rudraksha", "7 Mukhi", "600", 1),
	}

	basis, err := EligibleBasis(c, lines, Subtotal(lines), now)
	if err != nil {
		t.Fatalf("expected eligibility, got %v", err)
	}
	if !basis.Equal(dec("400")) {
		t.Fatalf("expected basis 400, got %s", basis)
	}
}

func TestScopeMatchAcceptsSubstringCaseInsensitive(t *testing.T) {
	c := Coupon{Code: "RUDRA", Type: TypePercent, Value: dec("10"), Category: "rudraksha", Active: true}
	lines := []Line{line("Nepali Rudraksha Beads", "", "500", 1)}

	if _, err := EligibleBasis(c, lines, Subtotal(lines), now); err != nil {
		t.Fatalf("expected substring category match, got %v", err)
	}
}

func TestSelectBestTieBreakPrefersEarlierCoupon(t *testing.T) {
	catalog := []Coupon{
		{Code: "FIRST10", Type: TypePercent, Value: dec("10"), Active: true},
		{Code: "SECOND10", Type: TypePercent, Value: dec("10"), Active: true},
	}
	lines := []Line{line("Mala", "", "1000", 1)}

	for i := 0; i < 5; i++ {
		best := SelectBest(catalog, lines, now)
		if best == nil || best.Code != "FIRST10" {
			t.Fatalf("run %d: expected FIRST10 to win the tie, got %+v", i, best)
		}
	}
}

func TestSelectBestPicksGreatestDiscount(t *testing.T) {
	catalog := []Coupon{
		{Code: "SAVE5", Type: TypePercent, Value: dec("5"), Active: true},
		{Code: "SAVE15", Type: TypePercent, Value: dec("15"), Active: true},
		{Code: "FLAT50", Type: TypeFlat, Value: dec("50"), Active: true},
	}
	lines := []Line{line("Mala", "", "1000", 1)}

	best := SelectBest(catalog, lines, now)
	if best == nil || best.Code != "SAVE15" {
		t.Fatalf("expected SAVE15, got %+v", best)
	}
	subtotal := Subtotal(lines)
	for _, c := range catalog {
		basis, err := EligibleBasis(c, lines, subtotal, now)
		if err != nil {
			continue
		}
		if d := DiscountFor(c, basis); d.GreaterThan(best.Discount) {
			t.Fatalf("coupon %s has greater discount %s than selected %s", c.Code, d, best.Discount)
		}
	}
}

func TestSelectBestEmptyInputs(t *testing.T) {
	if best := SelectBest(nil, []Line{line("Mala", "", "100", 1)}, now); best != nil {
		t.Fatalf("empty catalog must yield no coupon, got %+v", best)
	}
	catalog := []Coupon{{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true}}
	if best := SelectBest(catalog, nil, now); best != nil {
		t.Fatalf("empty cart must yield no coupon, got %+v", best)
	}
}

func TestZeroDiscountNeverSelected(t *testing.T) {
	catalog := []Coupon{{Code: "ZERO", Type: TypePercent, Value: dec("0"), Active: true}}
	lines := []Line{line("Mala", "", "1000", 1)}

	if best := SelectBest(catalog, lines, now); best != nil {
		t.Fatalf("zero-discount coupon must not be selected, got %+v", best)
	}
}

func TestDiscountNeverExceedsScopedBasis(t *testing.T) {
	coupons := []Coupon{
		{Code: "P90", Type: TypePercent, Value: dec("90"), Category: "Rudraksha", Active: true},
		{Code: "F9000", Type: TypeFlat, Value: dec("9000"), Category: "Rudraksha", Active: true},
	}
	for _, c := range coupons {
		basis := dec("450")
		d := DiscountFor(c, basis)
		if d.IsNegative() || d.GreaterThan(basis) {
			t.Fatalf("coupon %s: discount %s outside [0, %s]", c.Code, d, basis)
		}
	}
}

func TestFindByCodeCaseInsensitive(t *testing.T) {
	catalog := []Coupon{{Code: "Save10", Type: TypePercent, Value: dec("10"), Active: true}}

	c, err := FindByCode(catalog, "  save10 ")
	if err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if c.Code != "Save10" {
		t.Fatalf("unexpected coupon %q", c.Code)
	}
	if _, err := FindByCode(catalog, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectBestIdempotent(t *testing.T) {
	catalog := []Coupon{
		{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true},
		{Code: "FLAT90", Type: TypeFlat, Value: dec("90"), Active: true},
	}
	lines := []Line{line("Mala", "", "1000", 2)}

	first := SelectBest(catalog, lines, now)
	for i := 0; i < 3; i++ {
		again := SelectBest(catalog, lines, now)
		if again == nil || first == nil || again.Code != first.Code || !again.Discount.Equal(first.Discount) {
			t.Fatalf("selection not idempotent: %+v vs %+v", first, again)
		}
	}
}
