package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/wecr8/damp-backend/api/responses"
	pkgauth "github.com/wecr8/damp-backend/pkg/auth"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

// TokenVerifier checks a Firebase ID token.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*pkgauth.IDTokenClaims, error)
}

// Auth rejects requests without a valid bearer ID token.
func Auth(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return tokenAuth{verifier: verifier, logg: logg, required: true}.wrap
}

// OptionalAuth lets anonymous requests through but still rejects a bearer
// token that fails verification.
func OptionalAuth(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return tokenAuth{verifier: verifier, logg: logg}.wrap
}

type tokenAuth struct {
	verifier TokenVerifier
	logg     *logger.Logger
	required bool
}

func (a tokenAuth) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r.Header.Get("Authorization"))
		if !present && !a.required {
			next.ServeHTTP(w, r)
			return
		}

		ctx, err := a.authenticate(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), a.logg, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a tokenAuth) authenticate(ctx context.Context, token string) (context.Context, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token")
	}
	if a.verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotConfigured, "authentication is not configured")
	}

	claims, err := a.verifier.VerifyIDToken(ctx, token)
	switch {
	case err != nil && pkgerrors.As(err) != nil:
		return nil, err
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or expired token")
	case claims.UID() == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no subject")
	}

	ctx = WithIdentity(ctx, claims, token)
	return a.logg.WithUID(ctx, claims.UID()), nil
}

// bearerToken reports present=true for any Authorization header, so a
// malformed header is rejected rather than treated as anonymous.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}
