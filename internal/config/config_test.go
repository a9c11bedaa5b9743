package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/store",
		"REDIS_URL":            "redis://localhost:6379/0",
		"PORT":                 "",
		"TAX_RATE":             "",
		"CART_TTL":             "",
		"CURRENCY":             "",
		"COUPON_APPLY_MAX":     "",
		"CORS_ALLOWED_ORIGINS": "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr())
	}
	if cfg.Currency != "INR" {
		t.Fatalf("unexpected currency %q", cfg.Currency)
	}
	if !cfg.TaxRate.Equal(parseDecimal("0.18", "0.18")) {
		t.Fatalf("unexpected tax rate %s", cfg.TaxRate)
	}
	if cfg.CartTTL != 168*time.Hour {
		t.Fatalf("unexpected cart ttl %s", cfg.CartTTL)
	}
	if cfg.CouponApplyMax != 20 {
		t.Fatalf("unexpected apply max %d", cfg.CouponApplyMax)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	if err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/store",
		"REDIS_URL":            "redis://localhost:6379/0",
		"PORT":                 "9090",
		"TAX_RATE":             "0.05",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":9090" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr())
	}
	if !cfg.TaxRate.Equal(parseDecimal("0.05", "0.18")) {
		t.Fatalf("unexpected tax rate %s", cfg.TaxRate)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}
