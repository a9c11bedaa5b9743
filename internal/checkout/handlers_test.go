package checkout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/go-playground/validator/v10"

	"github.com/rudraveda/backend-store/internal/cart"
)

func TestCheckoutRejectsInvalidPayload(t *testing.T) {
	h := &Handler{Svc: &Service{}, Validate: validator.New()}
	for _, body := range []string{
		`not json`,
		`{}`,
		`{"cartId":"not-a-uuid","shippingName":"A","shippingAddress":"B"}`,
		`{"cartId":"0b6cdcdd-7f80-4b93-9a2a-6a4468e2eee4","shippingAddress":"B"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
		rr := httptest.NewRecorder()
		h.Checkout(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestWriteErrorMapping(t *testing.T) {
	h := &Handler{}
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{cart.ErrNotFound, http.StatusNotFound, "CART_NOT_FOUND"},
		{ErrEmptyCart, http.StatusUnprocessableEntity, "CART_EMPTY"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.writeError(rr, tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), tc.code) {
			t.Fatalf("%v: expected code %s in body %s", tc.err, tc.code, rr.Body.String())
		}
	}
}
