package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rudraveda/backend-store/internal/cart"
	"github.com/rudraveda/backend-store/internal/common"
	"github.com/rudraveda/backend-store/internal/obs"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type checkoutPayload struct {
	CartID       string `json:"cartId" validate:"required,uuid"`
	ShippingName string `json:"shippingName" validate:"required"`
	ShippingAddr string `json:"shippingAddress" validate:"required"`
	Notes        string `json:"notes"`
}

// Checkout converts a cart into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
			return
		}
	}
	cartID, err := uuid.Parse(payload.CartID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	out, err := h.Svc.Create(r.Context(), Input{
		CartID:       cartID,
		ShippingName: payload.ShippingName,
		ShippingAddr: payload.ShippingAddr,
		Notes:        payload.Notes,
	})
	if err != nil {
		countCheckout("error")
		h.writeError(w, err)
		return
	}
	countCheckout("ok")
	h.Logger.Info().Str("order_id", out.OrderID.String()).Str("coupon", out.CouponCode).Msg("checkout complete")
	common.JSONData(w, http.StatusCreated, out)
}

func countCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "CART_EMPTY", "cart has no items", nil)
	default:
		h.Logger.Error().Err(err).Msg("checkout")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
