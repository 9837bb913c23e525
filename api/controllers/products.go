package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/internal/catalog"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/money"
)

const catalogCacheControl = "public, max-age=300"

type productView struct {
	catalog.Product
	Currency         string `json:"currency"`
	FormattedPrice   string `json:"formattedPrice"`
	FormattedDeposit string `json:"formattedDeposit"`
	DiscountPercent  int64  `json:"discountPercent"`
}

func viewOf(p catalog.Product, currency string) productView {
	v := productView{
		Product:          p,
		Currency:         currency,
		FormattedPrice:   money.Format(p.Price, currency),
		FormattedDeposit: money.Format(p.Deposit, currency),
	}
	if p.OriginalPrice > p.Price && p.OriginalPrice > 0 {
		v.DiscountPercent = (p.OriginalPrice - p.Price) * 100 / p.OriginalPrice
	}
	return v
}

// etagFor is a strong validator over the JSON body. The catalog is embedded,
// so it only changes with a deploy.
func etagFor(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return `"` + hex.EncodeToString(sum[:12]) + `"`
}

// notModified sets the caching headers and reports whether the client's
// If-None-Match already matches.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("Cache-Control", catalogCacheControl)
	if etag == "" {
		return false
	}
	w.Header().Set("ETag", etag)
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if c := strings.TrimSpace(candidate); c == etag || c == "*" {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

func ProductsList(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "catalog unavailable"))
			return
		}
		products := cat.List()
		views := make([]productView, len(products))
		for i, p := range products {
			views[i] = viewOf(p, cat.Currency())
		}
		body := map[string]any{"products": views}
		if notModified(w, r, etagFor(body)) {
			return
		}
		responses.WriteSuccess(w, body)
	}
}

func ProductDetail(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "catalog unavailable"))
			return
		}
		p, err := cat.Get(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := viewOf(p, cat.Currency())
		if notModified(w, r, etagFor(view)) {
			return
		}
		responses.WriteSuccess(w, view)
	}
}
