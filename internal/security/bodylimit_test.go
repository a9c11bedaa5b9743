package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runBodyLimit(t *testing.T, max int64, body string, contentLength int64) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := BodyLimit{Max: max}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		seen = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/carts", strings.NewReader(body))
	if contentLength != 0 {
		req.ContentLength = contentLength
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, seen
}

func TestBodyLimitPassesSmallBody(t *testing.T) {
	rr, seen := runBodyLimit(t, 64, `{"qty":1}`, 0)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if seen != `{"qty":1}` {
		t.Fatalf("body should reach the handler unchanged, got %q", seen)
	}
}

func TestBodyLimitRejectsOversizedBody(t *testing.T) {
	rr, _ := runBodyLimit(t, 4, "way past the cap", 0)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	rr, _ := runBodyLimit(t, 4, "tiny", 4096)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from Content-Length alone, got %d", rr.Code)
	}
}
