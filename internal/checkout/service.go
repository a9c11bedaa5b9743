package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rudraveda/backend-store/internal/cart"
	"github.com/rudraveda/backend-store/internal/coupon"
	"github.com/rudraveda/backend-store/internal/lock"
	"github.com/rudraveda/backend-store/internal/pricing"
)

// ErrEmptyCart rejects checkout for carts with no items.
var ErrEmptyCart = errors.New("cart is empty")

// Input is the checkout request.
type Input struct {
	CartID       uuid.UUID
	ShippingName string
	ShippingAddr string
	Notes        string
}

// Output describes the created order.
type Output struct {
	OrderID    uuid.UUID       `json:"orderId"`
	Status     string          `json:"status"`
	CouponCode string          `json:"couponCode,omitempty"`
	Summary    pricing.Summary `json:"summary"`
}

// Service turns a cart into an order. The pricing run inside the checkout
// transaction is authoritative: whatever the cart preview showed, the order
// stores the totals computed here.
type Service struct {
	Pool     *pgxpool.Pool
	CartSvc  *cart.Service
	Coupons  coupon.Catalog
	Lock     *lock.Locker
	TaxRate  decimal.Decimal
	Currency string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create snapshots the cart into an immutable order, then drops the cart.
// A per-cart lock serialises concurrent checkouts of the same cart; the
// loser finds the cart gone and gets ErrNotFound.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Pool == nil || s.CartSvc == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if s.Lock != nil {
		var out Output
		err := s.Lock.WithLock(ctx, "checkout:cart:"+in.CartID.String(), 30*time.Second, func(ctx context.Context) error {
			var err error
			out, err = s.create(ctx, in)
			return err
		})
		return out, err
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in Input) (Output, error) {
	c, items, err := s.CartSvc.Get(ctx, in.CartID)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, ErrEmptyCart
	}

	// Re-run the coupon session so checkout picks up the same selection the
	// preview would commit, including a pending auto-apply.
	preview, err := s.CartSvc.Price(ctx, c, items)
	if err != nil {
		return Output{}, err
	}
	summary := preview.Summary
	code := ""
	if preview.Applied != nil {
		code = preview.Applied.Code
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID uuid.UUID
	err = tx.QueryRow(ctx, `INSERT INTO orders
		(user_id, cart_id, status, coupon_code, subtotal, discount, tax, total, currency, shipping_name, shipping_addr, notes)
		VALUES ($1, $2, 'created', NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''))
		RETURNING id`,
		c.UserID, c.ID, code, summary.Subtotal, summary.Discount, summary.Tax, summary.Total,
		s.currency(), in.ShippingName, in.ShippingAddr, in.Notes).Scan(&orderID)
	if err != nil {
		return Output{}, fmt.Errorf("create order: %w", err)
	}
	for _, it := range items {
		_, err := tx.Exec(ctx, `INSERT INTO order_items
			(order_id, product_id, title, category, subcategory, unit_price, qty, line_total)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
			orderID, it.ProductID, it.Title, it.Category, it.Subcategory, it.UnitPrice, it.Qty, it.Total())
		if err != nil {
			return Output{}, fmt.Errorf("create order item: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, c.ID); err != nil {
		return Output{}, fmt.Errorf("drop checked-out cart: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, fmt.Errorf("commit checkout tx: %w", err)
	}
	return Output{OrderID: orderID, Status: "created", CouponCode: code, Summary: summary}, nil
}

func (s *Service) currency() string {
	if s == nil || s.Currency == "" {
		return "INR"
	}
	return s.Currency
}
