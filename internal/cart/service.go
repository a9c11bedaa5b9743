package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rudraveda/backend-store/internal/coupon"
	"github.com/rudraveda/backend-store/internal/obs"
	"github.com/rudraveda/backend-store/internal/pricing"
)

// ErrNotFound indicates the requested cart or item could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Preview is the cart's computed pricing view.
type Preview struct {
	Applied *coupon.Applied `json:"appliedCoupon,omitempty"`
	Summary pricing.Summary `json:"summary"`
}

// Service encapsulates cart domain operations.
type Service struct {
	Pool    *pgxpool.Pool
	Coupons coupon.Catalog
	TaxRate decimal.Decimal
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

const cartColumns = `id, user_id, COALESCE(anon_id, ''), COALESCE(applied_coupon_code, ''), coupon_removed, expires_at`

// EnsureCart loads or creates a cart for the provided identifiers.
func (s *Service) EnsureCart(ctx context.Context, userID *uuid.UUID, anonID string) (Cart, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	expires := s.now().Add(s.ttl())

	var (
		row pgx.Row
	)
	switch {
	case userID != nil:
		row = s.Pool.QueryRow(ctx, `SELECT `+cartColumns+`
			FROM carts WHERE user_id = $1 AND expires_at > now()
			ORDER BY created_at DESC LIMIT 1`, *userID)
	case anonID != "":
		row = s.Pool.QueryRow(ctx, `SELECT `+cartColumns+`
			FROM carts WHERE anon_id = $1 AND expires_at > now()
			ORDER BY created_at DESC LIMIT 1`, anonID)
	default:
		return Cart{}, ErrInvalidInput
	}

	c, err := scanCart(row)
	if err == nil {
		_ = s.touch(ctx, c.ID)
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	created := s.Pool.QueryRow(ctx, `INSERT INTO carts (user_id, anon_id, expires_at)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING `+cartColumns, userID, anonID, expires)
	c, err = scanCart(created)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

// Get loads a cart and its items, rejecting expired carts.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Cart, []Item, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, nil, errors.New("cart service not configured")
	}
	c, err := scanCart(s.Pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, nil, ErrNotFound
		}
		return Cart{}, nil, fmt.Errorf("load cart: %w", err)
	}
	if !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(s.now()) {
		return Cart{}, nil, ErrNotFound
	}
	items, err := s.listItems(ctx, id)
	if err != nil {
		return Cart{}, nil, err
	}
	return c, items, nil
}

// AddItem inserts or increments a cart line, denormalising the product's
// pricing fields at add time.
func (s *Service) AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	var (
		title, category, subcategory string
		price                        decimal.Decimal
		active                       bool
	)
	err := s.Pool.QueryRow(ctx, `SELECT title, category, COALESCE(subcategory, ''), price, active
		FROM products WHERE id = $1`, productID).
		Scan(&title, &category, &subcategory, &price, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product not found: %w", ErrInvalidInput)
		}
		return fmt.Errorf("load product: %w", err)
	}
	if !active {
		return fmt.Errorf("product not available: %w", ErrInvalidInput)
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO cart_items (cart_id, product_id, title, category, subcategory, unit_price, qty)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`,
		cartID, productID, title, category, subcategory, price, qty)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return s.touch(ctx, cartID)
}

// UpdateQty updates the quantity for a cart item.
func (s *Service) UpdateQty(ctx context.Context, cartID, itemID uuid.UUID, qty int) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE cart_items SET qty = $3 WHERE id = $2 AND cart_id = $1`, cartID, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return s.touch(ctx, cartID)
}

// RemoveItem deletes a cart item.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart service not configured")
	}
	if _, err := s.Pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $2 AND cart_id = $1`, cartID, itemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return s.touch(ctx, cartID)
}

// ApplyCoupon validates the named coupon against the cart and persists it,
// clearing the sticky removal flag on success.
func (s *Service) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string) (coupon.Applied, error) {
	if s == nil || s.Pool == nil || s.Coupons == nil {
		return coupon.Applied{}, errors.New("cart service not configured")
	}
	c, items, err := s.Get(ctx, cartID)
	if err != nil {
		return coupon.Applied{}, err
	}
	catalog, err := s.Coupons.ListActive(ctx)
	if err != nil {
		return coupon.Applied{}, fmt.Errorf("load coupon catalog: %w", err)
	}
	sess, err := c.Session().Apply(catalog, code, CouponLines(items), s.now())
	if err != nil {
		return coupon.Applied{}, err
	}
	if err := s.persistCouponState(ctx, cartID, sess.Applied.Code, false); err != nil {
		return coupon.Applied{}, err
	}
	return *sess.Applied, nil
}

// RemoveCoupon clears the applied coupon and suppresses auto-apply for the
// rest of the session.
func (s *Service) RemoveCoupon(ctx context.Context, cartID uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart service not configured")
	}
	return s.persistCouponState(ctx, cartID, "", true)
}

// Price computes the cart's pricing preview, running the auto-apply
// controller first. A silently committed best coupon is persisted so checkout
// sees the same selection; catalog failures degrade to "no coupon available"
// rather than blocking the computation.
func (s *Service) Price(ctx context.Context, c Cart, items []Item) (Preview, error) {
	lines := CouponLines(items)
	catalog, err := s.catalog(ctx)
	if err != nil {
		catalog = nil
	}
	sess := c.Session()
	if c.AppliedCouponCode != "" {
		sess.Applied = s.reevaluate(catalog, c.AppliedCouponCode, lines)
	}
	hadCoupon := sess.Applied != nil
	sess = sess.Refresh(catalog, lines, s.now())
	if sess.Applied != nil && !hadCoupon {
		if err := s.persistCouponState(ctx, c.ID, sess.Applied.Code, false); err == nil {
			if obs.CouponAutoApplyTotal != nil {
				obs.CouponAutoApplyTotal.Inc()
			}
		}
	}
	summary := pricing.Compute(PricingItems(items), sess.Discount(), s.taxRate())
	return Preview{Applied: sess.Applied, Summary: summary}, nil
}

// reevaluate recomputes the discount for a previously committed code. A code
// that no longer evaluates keeps its slot with a zero discount; committed
// coupons are only ever cleared by an explicit removal.
func (s *Service) reevaluate(catalog []coupon.Coupon, code string, lines []coupon.Line) *coupon.Applied {
	if c, err := coupon.FindByCode(catalog, code); err == nil {
		if applied, err := coupon.Evaluate(c, lines, s.now()); err == nil {
			return &applied
		}
	}
	return &coupon.Applied{Code: coupon.NormalizeCode(code), Discount: decimal.Zero, Basis: decimal.Zero}
}

// Merge moves guest cart items into the user's active cart and returns it.
func (s *Service) Merge(ctx context.Context, guestCartID uuid.UUID, userID uuid.UUID) (Cart, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	guest, guestItems, err := s.Get(ctx, guestCartID)
	if err != nil {
		return Cart{}, err
	}
	target, err := s.EnsureCart(ctx, &userID, "")
	if err != nil {
		return Cart{}, err
	}
	for _, it := range guestItems {
		_, err := s.Pool.Exec(ctx, `INSERT INTO cart_items (cart_id, product_id, title, category, subcategory, unit_price, qty)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET qty = GREATEST(cart_items.qty, EXCLUDED.qty)`,
			target.ID, it.ProductID, it.Title, it.Category, it.Subcategory, it.UnitPrice, it.Qty)
		if err != nil {
			return Cart{}, fmt.Errorf("merge cart item: %w", err)
		}
	}
	if _, err := s.Pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guest.ID); err != nil {
		return Cart{}, fmt.Errorf("drop guest cart: %w", err)
	}
	return target, s.touch(ctx, target.ID)
}

func (s *Service) catalog(ctx context.Context) ([]coupon.Coupon, error) {
	if s.Coupons == nil {
		return nil, nil
	}
	return s.Coupons.ListActive(ctx)
}

func (s *Service) taxRate() decimal.Decimal {
	if s == nil || s.TaxRate.IsZero() {
		return pricing.DefaultTaxRate
	}
	return s.TaxRate
}

func (s *Service) persistCouponState(ctx context.Context, cartID uuid.UUID, code string, removed bool) error {
	if s.Pool == nil {
		return nil
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE carts
		SET applied_coupon_code = NULLIF($2, ''), coupon_removed = $3, updated_at = now()
		WHERE id = $1`, cartID, code, removed)
	if err != nil {
		return fmt.Errorf("persist coupon state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) touch(ctx context.Context, cartID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`,
		cartID, s.now().Add(s.ttl()))
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (s *Service) listItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, product_id, title, category, COALESCE(subcategory, ''), unit_price, qty
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Title, &it.Category, &it.Subcategory, &it.UnitPrice, &it.Qty); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan cart items: %w", err)
	}
	return items, nil
}

func scanCart(row pgx.Row) (Cart, error) {
	var c Cart
	if err := row.Scan(&c.ID, &c.UserID, &c.AnonID, &c.AppliedCouponCode, &c.CouponRemoved, &c.ExpiresAt); err != nil {
		return Cart{}, err
	}
	return c, nil
}
