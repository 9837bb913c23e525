package middleware

import (
	"context"

	pkgauth "github.com/wecr8/damp-backend/pkg/auth"
)

// Identity is the authenticated caller as seen by handlers.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	// Token is the raw ID token, forwarded when handlers call Firebase on
	// the user's behalf.
	Token string
}

type identityKey struct{}

// WithIdentity attaches the caller described by claims. Auth uses it; tests
// use it to fake an authenticated request.
func WithIdentity(ctx context.Context, claims *pkgauth.IDTokenClaims, rawToken string) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, Identity{
		UID:           claims.UID(),
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Token:         rawToken,
	})
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func UIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.UID
}

func EmailFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Email
}

func IDTokenFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Token
}

// VerifiedEmailFromContext is empty unless Firebase confirmed the address.
func VerifiedEmailFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	if !id.EmailVerified {
		return ""
	}
	return id.Email
}
