package bigquery

import (
	"errors"

	"cloud.google.com/go/bigquery"

	"github.com/wecr8/damp-backend/pkg/gcp"
)

// retryableReasons are the per-row reasons BigQuery documents as transient.
var retryableReasons = map[string]bool{
	"backendError":      true,
	"internalError":     true,
	"rateLimitExceeded": true,
	"timeout":           true,
}

// IsRetryable classifies streaming insert failures. A PutMultiError is
// retryable only when every failed row failed for a transient reason;
// one invalid row makes the whole batch permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rows bigquery.PutMultiError
	if errors.As(err, &rows) {
		for _, row := range rows {
			if !IsRetryable(row.Errors) {
				return false
			}
		}
		return len(rows) > 0
	}

	var multi bigquery.MultiError
	if errors.As(err, &multi) {
		for _, inner := range multi {
			if !IsRetryable(inner) {
				return false
			}
		}
		return len(multi) > 0
	}

	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) {
		return retryableReasons[bqErr.Reason]
	}
	return gcp.IsTransient(err)
}
