package coupon

import (
	"errors"
	"testing"
)

func TestSessionAutoAppliesBestCoupon(t *testing.T) {
	catalog := []Coupon{{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true}}
	lines := []Line{line("Mala", "", "1000", 1)}

	s := Session{}.Refresh(catalog, lines, now)
	if s.Applied == nil || s.Applied.Code != "SAVE10" {
		t.Fatalf("expected SAVE10 auto-applied, got %+v", s.Applied)
	}
	if s.ManuallyRemoved {
		t.Fatal("auto-apply must not set the removal flag")
	}
}

func TestSessionRefreshKeepsExistingCoupon(t *testing.T) {
	catalog := []Coupon{
		{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true},
		{Code: "SAVE20", Type: TypePercent, Value: dec("20"), Active: true},
	}
	lines := []Line{line("Mala", "", "1000", 1)}

	applied := Applied{Code: "SAVE10", Discount: dec("100"), Basis: dec("1000")}
	s := Session{Applied: &applied}.Refresh(catalog, lines, now)
	if s.Applied.Code != "SAVE10" {
		t.Fatalf("refresh must not replace an applied coupon, got %s", s.Applied.Code)
	}
}

func TestManualRemoveIsSticky(t *testing.T) {
	catalog := []Coupon{{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true}}
	lines := []Line{line("Mala", "", "1000", 1)}

	s := Session{}.Refresh(catalog, lines, now)
	s = s.Remove()
	if s.Applied != nil || !s.ManuallyRemoved {
		t.Fatalf("remove must clear the coupon and set the flag, got %+v", s)
	}

	// Repeated cart mutations must not re-trigger auto-apply.
	lines = append(lines, line("Gemstones", "", "250", 2))
	for i := 0; i < 4; i++ {
		s = s.Refresh(catalog, lines, now)
		if s.Applied != nil {
			t.Fatalf("mutation %d re-applied a coupon after manual removal", i)
		}
	}
}

func TestManualApplyResetsRemovalFlag(t *testing.T) {
	catalog := []Coupon{{Code: "SAVE10", Type: TypePercent, Value: dec("10"), Active: true}}
	lines := []Line{line("Mala", "", "1000", 1)}

	s := Session{ManuallyRemoved: true}
	s, err := s.Apply(catalog, "save10", lines, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Applied == nil || s.Applied.Code != "SAVE10" {
		t.Fatalf("expected SAVE10 applied, got %+v", s.Applied)
	}
	if s.ManuallyRemoved {
		t.Fatal("successful manual apply must reset the removal flag")
	}
}

func TestManualApplyFailureLeavesStateUnchanged(t *testing.T) {
	catalog := []Coupon{{Code: "MIN2000", Type: TypePercent, Value: dec("10"), MinOrderAmount: decPtr("2000"), Active: true}}
	lines := []Line{line("Mala", "", "1500", 1)}

	before := Session{ManuallyRemoved: true}
	after, err := before.Apply(catalog, "MIN2000", lines, now)
	if !errors.Is(err, ErrMinimumOrderUnmet) {
		t.Fatalf("expected ErrMinimumOrderUnmet, got %v", err)
	}
	if after.Applied != nil || !after.ManuallyRemoved {
		t.Fatalf("failed apply must leave state unchanged, got %+v", after)
	}

	if _, err := before.Apply(catalog, "UNKNOWN", lines, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionDiscount(t *testing.T) {
	s := Session{}
	if !s.Discount().IsZero() {
		t.Fatalf("empty session discount must be zero, got %s", s.Discount())
	}
	applied := Applied{Code: "SAVE10", Discount: dec("100"), Basis: dec("1000")}
	s.Applied = &applied
	if !s.Discount().Equal(dec("100")) {
		t.Fatalf("expected discount 100, got %s", s.Discount())
	}
}
