package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rudraveda/backend-store/internal/common"
	"github.com/rudraveda/backend-store/internal/coupon"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type cartView struct {
	Cart    Cart    `json:"cart"`
	Items   []Item  `json:"items"`
	Preview Preview `json:"pricing"`
}

type createPayload struct {
	UserID string `json:"userId"`
	AnonID string `json:"anonId"`
}

// Create ensures a cart exists for the caller and returns its current view.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	var userID *uuid.UUID
	if payload.UserID != "" {
		id, err := uuid.Parse(payload.UserID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
			return
		}
		userID = &id
	}
	if userID == nil && payload.AnonID == "" {
		payload.AnonID = uuid.NewString()
	}
	c, err := h.Service.EnsureCart(r.Context(), userID, payload.AnonID)
	if err != nil {
		h.writeError(w, err, "ensure cart")
		return
	}
	h.render(w, r, http.StatusCreated, c.ID)
}

// Get returns the cart with its items and pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, id)
}

type addItemPayload struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

// AddItem adds a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.Service.AddItem(r.Context(), id, productID, payload.Qty); err != nil {
		h.writeError(w, err, "add cart item")
		return
	}
	h.render(w, r, http.StatusOK, id)
}

type updateQtyPayload struct {
	Qty int `json:"qty" validate:"required,gt=0"`
}

// UpdateItem changes a line's quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	var payload updateQtyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	if err := h.Service.UpdateQty(r.Context(), id, itemID, payload.Qty); err != nil {
		h.writeError(w, err, "update cart item")
		return
	}
	h.render(w, r, http.StatusOK, id)
}

// RemoveItem deletes a line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if err := h.Service.RemoveItem(r.Context(), id, itemID); err != nil {
		h.writeError(w, err, "remove cart item")
		return
	}
	h.render(w, r, http.StatusOK, id)
}

type applyCouponPayload struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCoupon manually applies a coupon code to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload applyCouponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	if _, err := h.Service.ApplyCoupon(r.Context(), id, payload.Code); err != nil {
		h.writeError(w, err, "apply coupon")
		return
	}
	h.render(w, r, http.StatusOK, id)
}

// RemoveCoupon clears the applied coupon; auto-apply stays off for this cart
// until the shopper applies a code again.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	if err := h.Service.RemoveCoupon(r.Context(), id); err != nil {
		h.writeError(w, err, "remove coupon")
		return
	}
	h.render(w, r, http.StatusOK, id)
}

type mergePayload struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// Merge folds a guest cart into the user's cart after sign-in.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload mergePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	merged, err := h.Service.Merge(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err, "merge carts")
		return
	}
	h.render(w, r, http.StatusOK, merged.ID)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, id uuid.UUID) {
	c, items, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "load cart")
		return
	}
	preview, err := h.Service.Price(r.Context(), c, items)
	if err != nil {
		h.writeError(w, err, "price cart")
		return
	}
	// Price may have auto-applied a coupon; reflect that on the cart view.
	if preview.Applied != nil {
		c.AppliedCouponCode = preview.Applied.Code
	}
	if items == nil {
		items = []Item{}
	}
	common.JSONData(w, status, cartView{Cart: c, Items: items, Preview: preview})
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) validate(v any) error {
	if h == nil || h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, coupon.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon not found", nil)
	case errors.Is(err, coupon.ErrInactive), errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrMinimumOrderUnmet), errors.Is(err, coupon.ErrNotApplicable):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_NOT_ELIGIBLE", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg(msg)
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
