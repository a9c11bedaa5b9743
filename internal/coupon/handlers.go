package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rudraveda/backend-store/internal/common"
	"github.com/rudraveda/backend-store/internal/obs"
)

// Handler wires the coupon catalog to HTTP.
type Handler struct {
	Catalog  Catalog
	Store    *Store
	Validate *validator.Validate
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ListActive returns the publicly visible active catalog.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon catalog not configured", nil)
		return
	}
	coupons, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("list active coupons")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load coupons", nil)
		return
	}
	common.JSONData(w, http.StatusOK, coupons)
}

type previewItem struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	UnitPrice   string `json:"unitPrice" validate:"required"`
	Qty         int    `json:"qty" validate:"required,gt=0"`
}

type previewPayload struct {
	Code  string        `json:"code" validate:"required"`
	Items []previewItem `json:"items" validate:"required,min=1,dive"`
}

// Preview evaluates a named coupon against the supplied lines without
// touching any cart state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon catalog not configured", nil)
		return
	}
	var payload previewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	lines := make([]Line, 0, len(payload.Items))
	for _, it := range payload.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil || price.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid unit price", nil)
			return
		}
		lines = append(lines, Line{Category: it.Category, Subcategory: it.Subcategory, UnitPrice: price, Qty: it.Qty})
	}
	catalog, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("load coupon catalog for preview")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load coupons", nil)
		return
	}
	c, err := FindByCode(catalog, payload.Code)
	if err != nil {
		countEval("manual", "not_found")
		writeCouponError(w, err)
		return
	}
	applied, err := Evaluate(c, lines, h.now())
	if err != nil {
		countEval("manual", "rejected")
		writeCouponError(w, err)
		return
	}
	countEval("manual", "ok")
	common.JSONData(w, http.StatusOK, applied)
}

type upsertPayload struct {
	Code              string     `json:"code" validate:"required,min=2,max=32"`
	DiscountType      string     `json:"discountType" validate:"required,oneof=percent flat"`
	DiscountValue     string     `json:"discountValue" validate:"required"`
	MinOrderAmount    *string    `json:"minOrderAmount"`
	MaxDiscountAmount *string    `json:"maxDiscountAmount"`
	Category          string     `json:"applicableCategory"`
	Subcategory       string     `json:"applicableSubcategory"`
	Active            bool       `json:"isActive"`
	ExpiryDate        *time.Time `json:"expiryDate"`
}

func (p upsertPayload) toCoupon() (Coupon, error) {
	value, err := decimal.NewFromString(p.DiscountValue)
	if err != nil || value.IsNegative() {
		return Coupon{}, errors.New("discountValue must be a non-negative decimal")
	}
	c := Coupon{
		Code:        NormalizeCode(p.Code),
		Type:        Type(p.DiscountType),
		Value:       value,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Active:      p.Active,
		ExpiresAt:   p.ExpiryDate,
	}
	if p.MinOrderAmount != nil {
		min, err := decimal.NewFromString(*p.MinOrderAmount)
		if err != nil || min.IsNegative() {
			return Coupon{}, errors.New("minOrderAmount must be a non-negative decimal")
		}
		c.MinOrderAmount = &min
	}
	if p.MaxDiscountAmount != nil {
		max, err := decimal.NewFromString(*p.MaxDiscountAmount)
		if err != nil || max.IsNegative() {
			return Coupon{}, errors.New("maxDiscountAmount must be a non-negative decimal")
		}
		c.MaxDiscount = &max
	}
	return c, nil
}

// AdminList returns a paginated catalog view including inactive coupons.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	coupons, total, err := h.Store.List(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list coupons")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": coupons,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// AdminCreate inserts a coupon.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	c, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}
	created, err := h.Store.Create(r.Context(), c)
	if err != nil {
		writeCouponError(w, err)
		return
	}
	h.Logger.Info().Str("code", created.Code).Msg("coupon created")
	common.JSONData(w, http.StatusCreated, created)
}

// AdminUpdate replaces a coupon's rule.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return
	}
	c, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}
	c.ID = id
	updated, err := h.Store.Update(r.Context(), c)
	if err != nil {
		writeCouponError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, updated)
}

// AdminDelete removes a coupon.
func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeCouponError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeUpsert(w http.ResponseWriter, r *http.Request) (Coupon, bool) {
	var payload upsertPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return Coupon{}, false
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return Coupon{}, false
	}
	c, err := payload.toCoupon()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return Coupon{}, false
	}
	return c, true
}

func (h *Handler) validate(v any) error {
	if h == nil || h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func countEval(mode, result string) {
	if obs.CouponEvalTotal != nil {
		obs.CouponEvalTotal.WithLabelValues(mode, result).Inc()
	}
}

// writeCouponError maps engine and store errors onto the canonical error shape.
// Eligibility failures are client errors: they never abort anything, they only
// explain why a discount was refused.
func writeCouponError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon not found", nil)
	case errors.Is(err, ErrDuplicateCode):
		common.JSONError(w, http.StatusConflict, "COUPON_DUPLICATE", "coupon code already exists", nil)
	case errors.Is(err, ErrInactive), errors.Is(err, ErrExpired),
		errors.Is(err, ErrMinimumOrderUnmet), errors.Is(err, ErrNotApplicable):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_NOT_ELIGIBLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon operation failed", nil)
	}
}
