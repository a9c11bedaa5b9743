package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a sellable item. Category and subcategory drive coupon scoping,
// so they are first-class columns rather than free-form tags.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"active"`
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query       string
	Category    string
	Subcategory string
	Page        int
	PerPage     int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int
}

// Store serves the product catalog from PostgreSQL with a Redis cache in
// front of the unfiltered first page.
type Store struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

const productColumns = `id, title, slug, category, COALESCE(subcategory, ''), price, COALESCE(description, ''), active`

const defaultListKey = "catalog:products:first-page"

// List returns active products matching the filters plus the total count.
func (s *Store) List(ctx context.Context, params ListParams) (ListResult, error) {
	key, cacheable := listCacheKey(params)
	if cacheable {
		var cached ListResult
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	where := []string{"active"}
	args := []any{}
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	if c := strings.TrimSpace(params.Category); c != "" {
		args = append(args, strings.ToLower(c))
		where = append(where, fmt.Sprintf("LOWER(category) = $%d", len(args)))
	}
	if sc := strings.TrimSpace(params.Subcategory); sc != "" {
		args = append(args, strings.ToLower(sc))
		where = append(where, fmt.Sprintf("LOWER(subcategory) = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+clause, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}

	limit := params.PerPage
	if limit < 1 {
		limit = 20
	}
	offset := (params.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE %s
		ORDER BY title, id LIMIT $%d OFFSET $%d`, productColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("scan products: %w", err)
	}
	result := ListResult{Items: items, Total: total}
	if cacheable {
		_ = s.Cache.SetJSON(ctx, key, result)
	}
	return result, nil
}

// Get loads a product by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetBySlug loads a product by its URL slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, strings.TrimSpace(slug))
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product by slug: %w", err)
	}
	return p, nil
}

func listCacheKey(params ListParams) (string, bool) {
	if params.Query != "" || params.Category != "" || params.Subcategory != "" {
		return "", false
	}
	if params.Page > 1 {
		return "", false
	}
	return defaultListKey, true
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.Subcategory, &p.Price, &p.Description, &p.Active); err != nil {
		return Product{}, err
	}
	return p, nil
}
