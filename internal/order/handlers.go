package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rudraveda/backend-store/internal/common"
	"github.com/rudraveda/backend-store/internal/invoice"
)

// Handler serves order reads and the invoice view.
type Handler struct {
	Store  *Store
	Logger zerolog.Logger
}

type orderView struct {
	Order Order  `json:"order"`
	Items []Item `json:"items"`
}

// Get returns an order with its items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	o, items, ok := h.load(w, r, id)
	if !ok {
		return
	}
	common.JSONData(w, http.StatusOK, orderView{Order: o, Items: items})
}

// List returns a page of the given user's orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	orders, total, err := h.Store.ListForUser(r.Context(), userID, perPage, common.Offset(page, perPage))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list orders")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

type invoiceLine struct {
	Item
	AllocatedTax   decimal.Decimal `json:"allocatedTax"`
	LineGrandTotal decimal.Decimal `json:"lineGrandTotal"`
}

type invoiceView struct {
	Order Order         `json:"order"`
	Lines []invoiceLine `json:"lines"`
}

// Invoice returns the order with tax allocated across its lines from the
// stored totals.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	o, items, ok := h.load(w, r, id)
	if !ok {
		return
	}
	lineTotals := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		lineTotals = append(lineTotals, it.LineTotal)
	}
	allocated := invoice.Allocate(lineTotals, o.Subtotal, o.Discount, o.Total)
	lines := make([]invoiceLine, 0, len(items))
	for i, it := range items {
		lines = append(lines, invoiceLine{
			Item:           it,
			AllocatedTax:   allocated[i].Tax,
			LineGrandTotal: allocated[i].Total,
		})
	}
	common.JSONData(w, http.StatusOK, invoiceView{Order: o, Lines: lines})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) (Order, []Item, bool) {
	o, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		} else {
			h.Logger.Error().Err(err).Msg("load order")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order", nil)
		}
		return Order{}, nil, false
	}
	items, err := h.Store.Items(r.Context(), id)
	if err != nil {
		h.Logger.Error().Err(err).Msg("load order items")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order", nil)
		return Order{}, nil, false
	}
	if items == nil {
		items = []Item{}
	}
	return o, items, true
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}
