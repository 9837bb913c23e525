package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
)

const maxQueryValue = 256

// QueryString returns the sanitized value of key, or "" when absent.
func QueryString(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), maxQueryValue)
}

// ParseQueryInt reads an optional integer bounded by [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := QueryString(r, key)
	if raw == "" {
		return fallback, nil
	}
	details := map[string]any{"field": key, "min": lo, "max": hi}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be an integer").WithDetails(details)
	}
	if v := int(n); v >= lo && v <= hi {
		return v, nil
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is out of range").WithDetails(details)
}
