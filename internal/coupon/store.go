package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrDuplicateCode indicates the coupon code is already taken.
var ErrDuplicateCode = errors.New("coupon code already exists")

// Catalog yields coupons for the pricing engine. Implementations may serve
// pre-filtered rows, but the engine still re-checks activity and expiry.
type Catalog interface {
	ListActive(ctx context.Context) ([]Coupon, error)
	GetByCode(ctx context.Context, code string) (Coupon, error)
}

const activeCatalogKey = "coupons:active"

// Store is the PostgreSQL-backed coupon catalog with an optional Redis cache
// in front of the active set.
type Store struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

var _ Catalog = (*Store)(nil)

const couponColumns = `id, code, discount_type, value, min_order_amount, max_discount,
	COALESCE(category, ''), COALESCE(subcategory, ''), active, expires_at`

// ListActive returns the active catalog in insertion order. Selection order is
// significant for tie-breaking, so the ordering clause must stay stable.
func (s *Store) ListActive(ctx context.Context) ([]Coupon, error) {
	var cached []Coupon
	if ok, err := s.Cache.GetJSON(ctx, activeCatalogKey, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+couponColumns+`
		FROM coupons
		WHERE active
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list active coupons: %w", err)
	}
	defer rows.Close()
	coupons, err := scanCoupons(rows)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, activeCatalogKey, coupons)
	return coupons, nil
}

// GetByCode looks a coupon up by case-insensitive code.
func (s *Store) GetByCode(ctx context.Context, code string) (Coupon, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+couponColumns+`
		FROM coupons
		WHERE UPPER(code) = $1`, NormalizeCode(code))
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("get coupon by code: %w", err)
	}
	return c, nil
}

// List returns a page of all coupons plus the total count, for the admin UI.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Coupon, int, error) {
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coupons: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+couponColumns+`
		FROM coupons
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()
	coupons, err := scanCoupons(rows)
	if err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// Create inserts a new coupon and invalidates the cached active catalog.
func (s *Store) Create(ctx context.Context, c Coupon) (Coupon, error) {
	row := s.Pool.QueryRow(ctx, `INSERT INTO coupons
		(code, discount_type, value, min_order_amount, max_discount, category, subcategory, active, expires_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
		RETURNING `+couponColumns,
		NormalizeCode(c.Code), string(c.Type), c.Value, nullDecimal(c.MinOrderAmount), nullDecimal(c.MaxDiscount),
		c.Category, c.Subcategory, c.Active, c.ExpiresAt)
	created, err := scanCoupon(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Coupon{}, ErrDuplicateCode
		}
		return Coupon{}, fmt.Errorf("create coupon: %w", err)
	}
	_ = s.Cache.Invalidate(ctx, activeCatalogKey)
	return created, nil
}

// Update replaces a coupon's rule fields.
func (s *Store) Update(ctx context.Context, c Coupon) (Coupon, error) {
	row := s.Pool.QueryRow(ctx, `UPDATE coupons SET
		code = $2, discount_type = $3, value = $4, min_order_amount = $5, max_discount = $6,
		category = NULLIF($7, ''), subcategory = NULLIF($8, ''), active = $9, expires_at = $10,
		updated_at = now()
		WHERE id = $1
		RETURNING `+couponColumns,
		c.ID, NormalizeCode(c.Code), string(c.Type), c.Value, nullDecimal(c.MinOrderAmount), nullDecimal(c.MaxDiscount),
		c.Category, c.Subcategory, c.Active, c.ExpiresAt)
	updated, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Coupon{}, ErrDuplicateCode
		}
		return Coupon{}, fmt.Errorf("update coupon: %w", err)
	}
	_ = s.Cache.Invalidate(ctx, activeCatalogKey)
	return updated, nil
}

// Delete removes a coupon.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_ = s.Cache.Invalidate(ctx, activeCatalogKey)
	return nil
}

func scanCoupons(rows pgx.Rows) ([]Coupon, error) {
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan coupons: %w", err)
	}
	return out, nil
}

func scanCoupon(row pgx.Row) (Coupon, error) {
	var (
		c         Coupon
		kind      string
		minOrder  decimal.NullDecimal
		maxDisc   decimal.NullDecimal
		expiresAt *time.Time
	)
	if err := row.Scan(&c.ID, &c.Code, &kind, &c.Value, &minOrder, &maxDisc,
		&c.Category, &c.Subcategory, &c.Active, &expiresAt); err != nil {
		return Coupon{}, err
	}
	c.Type = Type(kind)
	if minOrder.Valid {
		c.MinOrderAmount = &minOrder.Decimal
	}
	if maxDisc.Valid {
		c.MaxDiscount = &maxDisc.Decimal
	}
	c.ExpiresAt = expiresAt
	return c, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
