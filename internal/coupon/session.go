package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session carries the coupon state for one checkout session. It is an explicit
// value passed into and returned from each transition, owned by exactly one
// session and never shared across concurrent requests.
type Session struct {
	Applied         *Applied `json:"applied,omitempty"`
	ManuallyRemoved bool     `json:"manuallyRemoved"`
}

// Refresh re-runs best-coupon selection after a cart or catalog change.
//
// Selection only happens while no coupon is applied and the shopper has not
// manually removed one: once a suggestion is declined it stays suppressed for
// the rest of the session, until a subsequent successful Apply resets the flag.
// A committed result carries no user-facing notification, which distinguishes
// it from a manual apply.
func (s Session) Refresh(catalog []Coupon, lines []Line, now time.Time) Session {
	if s.Applied != nil || s.ManuallyRemoved {
		return s
	}
	if best := SelectBest(catalog, lines, now); best != nil {
		s.Applied = best
	}
	return s
}

// Apply evaluates the named coupon and commits it on success, clearing the
// manual-removal suppression. On failure the state is returned unchanged and
// the error is surfaced to the caller.
func (s Session) Apply(catalog []Coupon, code string, lines []Line, now time.Time) (Session, error) {
	c, err := FindByCode(catalog, code)
	if err != nil {
		return s, err
	}
	applied, err := Evaluate(c, lines, now)
	if err != nil {
		return s, err
	}
	s.Applied = &applied
	s.ManuallyRemoved = false
	return s, nil
}

// Remove clears the applied coupon and suppresses auto-apply for the rest of
// the session.
func (s Session) Remove() Session {
	s.Applied = nil
	s.ManuallyRemoved = true
	return s
}

// Discount returns the currently applied discount amount, or zero.
func (s Session) Discount() decimal.Decimal {
	if s.Applied == nil {
		return decimal.Zero
	}
	return s.Applied.Discount
}
