package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubStore struct {
	products []Product
}

func (s stubStore) List(_ context.Context, _ ListParams) (ListResult, error) {
	return ListResult{Items: s.products, Total: len(s.products)}, nil
}

func (s stubStore) Get(_ context.Context, id uuid.UUID) (Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (s stubStore) GetBySlug(_ context.Context, slug string) (Product, error) {
	for _, p := range s.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func testProduct() Product {
	return Product{
		ID:       uuid.New(),
		Title:    "7 Mukhi Rudraksha",
		Slug:     "7-mukhi-rudraksha",
		Category: "Rudraksha",
		Price:    decimal.RequireFromString("1500"),
		Active:   true,
	}
}

func TestProductsList(t *testing.T) {
	h := &Handler{Store: stubStore{products: []Product{testProduct()}}}
	rr := httptest.NewRecorder()
	h.Products(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "7 Mukhi Rudraksha") {
		t.Fatalf("expected product in body, got %s", rr.Body.String())
	}
}

func TestProductBySlug(t *testing.T) {
	p := testProduct()
	h := &Handler{Store: stubStore{products: []Product{p}}}

	router := chi.NewRouter()
	router.Get("/api/products/{productID}", h.Product)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/7-mukhi-rudraksha", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), p.ID.String()) {
		t.Fatalf("expected product id in body, got %s", rr.Body.String())
	}
}

func TestProductNotFound(t *testing.T) {
	h := &Handler{Store: stubStore{}}

	router := chi.NewRouter()
	router.Get("/api/products/{productID}", h.Product)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/"+uuid.NewString(), nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
