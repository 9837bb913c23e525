package bigquery

import (
	"errors"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func rowErr(reasons ...string) bigquery.RowInsertionError {
	var errs bigquery.MultiError
	for _, r := range reasons {
		errs = append(errs, &bigquery.Error{Reason: r})
	}
	return bigquery.RowInsertionError{InsertID: "evt", Errors: errs}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"http 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"http 404", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "x"), false},
		{"rows backend", bigquery.PutMultiError{rowErr("backendError"), rowErr("timeout")}, true},
		{"rows mixed", bigquery.PutMultiError{rowErr("backendError"), rowErr("invalid")}, false},
		{"row with mixed reasons", bigquery.PutMultiError{rowErr("rateLimitExceeded", "invalid")}, false},
		{"empty rows", bigquery.PutMultiError{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
