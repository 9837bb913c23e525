package auth

import (
	"errors"

	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/firebase"
)

var (
	ErrInvalidEmail    = pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	ErrWeakPassword    = pkgerrors.New(pkgerrors.CodeValidation, "password should be at least 6 characters")
	ErrEmailInUse      = pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
	ErrUserNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	ErrWrongPassword   = pkgerrors.New(pkgerrors.CodeUnauthorized, "wrong password")
	ErrInvalidToken    = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired id token")
	ErrNotInitialized  = pkgerrors.New(pkgerrors.CodeNotConfigured, "authentication is not configured")
	ErrTooManyRequests = pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later")
	ErrUpstream        = pkgerrors.New(pkgerrors.CodeDependency, "identity provider unavailable")
)

var reasonErrors = map[string]*pkgerrors.Error{
	"INVALID_EMAIL":               ErrInvalidEmail,
	"MISSING_EMAIL":               ErrInvalidEmail,
	"WEAK_PASSWORD":               ErrWeakPassword,
	"MISSING_PASSWORD":            ErrWeakPassword,
	"EMAIL_EXISTS":                ErrEmailInUse,
	"EMAIL_NOT_FOUND":             ErrUserNotFound,
	"USER_NOT_FOUND":              ErrUserNotFound,
	"USER_DISABLED":               ErrUserNotFound,
	"INVALID_PASSWORD":            ErrWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   ErrWrongPassword,
	"INVALID_ID_TOKEN":            ErrInvalidToken,
	"TOKEN_EXPIRED":               ErrInvalidToken,
	"TOO_MANY_ATTEMPTS_TRY_LATER": ErrTooManyRequests,
}

// normalize maps provider failures onto the package sentinels. The provider
// error stays reachable through errors.As.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	if sentinel, ok := reasonErrors[firebase.ReasonOf(err)]; ok {
		return pkgerrors.Wrap(sentinel.Code(), err, sentinel.Message())
	}
	return pkgerrors.Wrap(ErrUpstream.Code(), err, ErrUpstream.Message())
}
