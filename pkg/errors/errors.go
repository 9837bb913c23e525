// Package errors defines the typed error carried from services to the HTTP
// envelope. The Code decides status, retryability, and what the client sees.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeNotConfigured Code = "NOT_CONFIGURED"
)

// Metadata is the client-facing policy for a Code.
type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage replaces the error's own message unless ExposeMessage is set.
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

const (
	retryable = 1 << iota
	exposeMessage
	detailsAllowed
)

func policy(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		ExposeMessage:  flags&exposeMessage != 0,
		DetailsAllowed: flags&detailsAllowed != 0,
	}
}

var policies = map[Code]Metadata{
	CodeValidation:    policy(http.StatusBadRequest, "validation failed", exposeMessage|detailsAllowed),
	CodeUnauthorized:  policy(http.StatusUnauthorized, "authentication required", exposeMessage),
	CodeForbidden:     policy(http.StatusForbidden, "access denied", exposeMessage),
	CodeNotFound:      policy(http.StatusNotFound, "resource not found", exposeMessage),
	CodeConflict:      policy(http.StatusConflict, "conflict detected", exposeMessage|detailsAllowed),
	CodeStateConflict: policy(http.StatusUnprocessableEntity, "state transition disallowed", exposeMessage|detailsAllowed),
	CodeIdempotency:   policy(http.StatusConflict, "idempotency key reused", exposeMessage|detailsAllowed),
	CodeRateLimit:     policy(http.StatusTooManyRequests, "rate limit exceeded", exposeMessage),
	CodeInternal:      policy(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:    policy(http.StatusServiceUnavailable, "dependency unavailable", retryable|exposeMessage|detailsAllowed),
	CodeNotConfigured: policy(http.StatusServiceUnavailable, "feature not configured", exposeMessage),
}

// MetadataFor falls back to the internal-error policy for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := policies[code]; ok {
		return m
	}
	return policies[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is/As. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails copies e, so shared sentinels never carry request data.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.details = details
	return &out
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return string(e.code) + ": " + e.message
	}
	return string(e.code) + ": " + e.message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is treats two *Error values with the same code and message as equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e == t || (e.code == t.code && e.message == t.message)
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
