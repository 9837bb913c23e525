package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wecr8/damp-backend/internal/catalog"
)

func TestProductsList(t *testing.T) {
	rec := serve(t, http.MethodGet, "/api/v1/products", "/api/v1/products", "", ProductsList(catalog.Default(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalogCacheControl, rec.Header().Get("Cache-Control"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	body := decodeData[map[string][]productView](t, rec)
	require.Len(t, body["products"], 4)
	handle := body["products"][0]
	assert.Equal(t, "damp-handle", handle.ID)
	assert.Equal(t, "$49.99", handle.FormattedPrice)
	assert.Equal(t, "$19.99", handle.FormattedDeposit)
	assert.EqualValues(t, 28, handle.DiscountPercent)

	again := serve(t, http.MethodGet, "/api/v1/products", "/api/v1/products", "", ProductsList(catalog.Default(), nil),
		withHeader("If-None-Match", `"stale", `+etag))
	assert.Equal(t, http.StatusNotModified, again.Code)
	assert.Empty(t, again.Body.String())
}

func TestProductDetail(t *testing.T) {
	h := ProductDetail(catalog.Default(), nil)

	rec := serve(t, http.MethodGet, "/api/v1/products/{productId}", "/api/v1/products/baby-bottle", "", h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DAMP Baby Bottle", decodeData[productView](t, rec).Name)

	rec = serve(t, http.MethodGet, "/api/v1/products/{productId}", "/api/v1/products/mug", "", h)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, http.MethodGet, "/api/v1/products/{productId}", "/api/v1/products/mug", "", ProductDetail(nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
