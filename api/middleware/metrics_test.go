package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/wecr8/damp-backend/pkg/metrics"
)

func TestMetricsRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Metrics(metrics.NewHTTPMetrics(reg)))
	r.Get("/api/v1/cart/{cartId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart/abc123", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "damp_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == "/api/v1/cart/{cartId}" {
				require.Equal(t, "404", labels["status"])
				require.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
				found = true
			}
		}
	}
	require.True(t, found, "expected histogram sample labelled with the route pattern")
}

func TestStatusOfDefaultsToOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ww := wrap(httptest.NewRecorder(), req)
	require.Equal(t, http.StatusOK, statusOf(ww))

	_, _ = ww.Write([]byte("hi"))
	ww.WriteHeader(http.StatusTeapot)
	require.Equal(t, http.StatusOK, statusOf(ww))
	require.Equal(t, 2, ww.BytesWritten())
}

func TestRoutePatternUnmatched(t *testing.T) {
	require.Equal(t, "unmatched", routePattern(httptest.NewRequest(http.MethodGet, "/nope", nil)))
}
