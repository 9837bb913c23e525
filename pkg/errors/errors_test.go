package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

func TestPolicies(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", ExposeMessage: true, DetailsAllowed: true},
		CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ExposeMessage: true},
		CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", ExposeMessage: true, DetailsAllowed: true},
		CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", ExposeMessage: true},
		CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, ExposeMessage: true, DetailsAllowed: true},
		CodeNotConfigured: {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "feature not configured", ExposeMessage: true},
	}
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), code)
	}
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestWithDetailsCopies(t *testing.T) {
	base := New(CodeValidation, "missing productId")
	detailed := base.WithDetails(map[string]any{"field": "productId"})

	require.Nil(t, base.Details())
	require.NotNil(t, detailed.Details())
	require.ErrorIs(t, detailed, base)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("redis: connection refused")
	wrapped := Wrap(CodeDependency, cause, "cart store unavailable")

	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeDependency, wrapped.Code())
	require.Equal(t, "DEPENDENCY_ERROR: cart store unavailable: redis: connection refused", wrapped.Error())
	require.Equal(t, "NOT_FOUND: cart 42", Newf(CodeNotFound, "cart %d", 42).Error())
}

func TestIsMatchesByCodeAndMessage(t *testing.T) {
	sentinel := New(CodeConflict, "already voted")
	fresh := New(CodeConflict, "already voted").WithDetails(map[string]any{"productId": "handle"})
	wrapped := fmt.Errorf("submit: %w", fresh)

	require.ErrorIs(t, wrapped, sentinel)
	require.NotErrorIs(t, New(CodeConflict, "email exists"), sentinel)
	require.True(t, HasCode(wrapped, CodeConflict))
	require.False(t, HasCode(stderrors.New("plain"), CodeConflict))
	require.Nil(t, As(nil))
}

func TestLogFields(t *testing.T) {
	require.Nil(t, LogFields(nil))

	pg := Wrap(CodeConflict, &pgconn.PgError{Code: "23505", ConstraintName: "votes_voter_id_key"}, "vote exists")
	fields := LogFields(pg)
	assert.Equal(t, "CONFLICT", fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "votes_voter_id_key", fields["pg_constraint"])
	assert.Equal(t, []string{"*errors.Error", "*pgconn.PgError"}, fields["error_chain"])

	se := &stripe.Error{Type: stripe.ErrorTypeCard, Code: stripe.ErrorCodeCardDeclined, RequestID: "req_123", HTTPStatusCode: 402}
	fields = LogFields(fmt.Errorf("capture: %w", se))
	assert.Equal(t, "req_123", fields["stripe_request_id"])
	assert.Equal(t, "card_declined", fields["stripe_code"])
	assert.NotContains(t, fields, "error_code")
}
