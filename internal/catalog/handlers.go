package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rudraveda/backend-store/internal/common"
)

// Lister abstracts the product store for handler tests.
type Lister interface {
	List(ctx context.Context, params ListParams) (ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
}

// Handler exposes public catalog endpoints.
type Handler struct {
	Store  Lister
	Logger zerolog.Logger
}

// Products handles GET /api/products with filters and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	q := r.URL.Query()
	result, err := h.Store.List(r.Context(), ListParams{
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Page:        page,
		PerPage:     perPage,
	})
	if err != nil {
		h.Logger.Error().Err(err).Msg("list products")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load products", nil)
		return
	}
	items := result.Items
	if items == nil {
		items = []Product{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: result.Total},
	})
}

// Product handles GET /api/products/{id}. The path segment may be either a
// product id or a slug.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	key := chi.URLParam(r, "productID")
	var (
		p   Product
		err error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		p, err = h.Store.Get(r.Context(), id)
	} else {
		p, err = h.Store.GetBySlug(r.Context(), key)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("load product")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load product", nil)
		return
	}
	common.JSONData(w, http.StatusOK, p)
}
