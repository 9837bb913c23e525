package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/pkg/config"
)

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := serve(t, http.MethodGet, "/health/live", "/health/live", "", HealthLive(cfg))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Damp-Env") != "dev" {
		t.Fatalf("missing env header")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", "",
		HealthReady(cfg, []ReadinessCheck{{Name: "db", Pinger: ok}, {Name: "redis", Pinger: ok}}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	rec = serve(t, http.MethodGet, "/health/ready", "/health/ready", "",
		HealthReady(cfg, []ReadinessCheck{{Name: "db", Pinger: ok}, {Name: "redis", Pinger: down}}, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	env := decodeError(t, rec)
	checks, _ := env.Error.Details["checks"].(map[string]any)
	if checks["redis"] != "unavailable" {
		t.Fatalf("expected redis reported unavailable, got %v", env.Error.Details)
	}
}

func TestProductsListAndDetailNotFound(t *testing.T) {
	rec := serve(t, http.MethodGet, "/api/v1/products", "/api/v1/products", "", ProductsList(catalog.Default(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	got := decodeData[map[string][]productView](t, rec)["products"]
	if len(got) != 4 {
		t.Fatalf("expected 4 products got %d", len(got))
	}
	if got[0].FormattedPrice == "" || got[0].Currency == "" {
		t.Fatalf("expected formatted price, got %+v", got[0])
	}

	rec = serve(t, http.MethodGet, "/api/v1/products/{productId}", "/api/v1/products/nope", "", ProductDetail(catalog.Default(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
