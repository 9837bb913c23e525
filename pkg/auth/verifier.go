// Package auth verifies Firebase ID tokens with the Firebase Admin SDK, which
// checks the signature against Google's published certificates and caches
// them per their Cache-Control max-age.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/option"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type Verifier struct {
	tokens idTokenVerifier
}

// NewVerifier builds an Admin SDK client for projectID. opts carry the
// service credentials; FIREBASE_AUTH_EMULATOR_HOST switches the SDK to the
// local emulator.
func NewVerifier(ctx context.Context, projectID string, opts ...option.ClientOption) (*Verifier, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("auth: firebase project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: firebase auth client: %w", err)
	}
	return &Verifier{tokens: client}, nil
}

// Verify returns the token's claims once signature, audience, issuer and
// timing all check out.
func (v *Verifier) Verify(ctx context.Context, raw string) (*IDTokenClaims, error) {
	if v == nil || v.tokens == nil {
		return nil, errors.New("auth: verifier not configured")
	}
	token, err := v.tokens.VerifyIDToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("auth: verify id token: %w", err)
	}
	return claimsFromToken(token), nil
}

func claimsFromToken(t *fbauth.Token) *IDTokenClaims {
	claims := &IDTokenClaims{
		AuthTime: t.AuthTime,
		Firebase: FirebaseClaim{
			SignInProvider: t.Firebase.SignInProvider,
			Tenant:         t.Firebase.Tenant,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  t.UID,
			Issuer:   t.Issuer,
			Audience: jwt.ClaimStrings{t.Audience},
		},
	}
	if t.IssuedAt > 0 {
		claims.IssuedAt = jwt.NewNumericDate(time.Unix(t.IssuedAt, 0))
	}
	if t.Expires > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Unix(t.Expires, 0))
	}
	claims.Email, _ = t.Claims["email"].(string)
	claims.EmailVerified, _ = t.Claims["email_verified"].(bool)
	claims.Name, _ = t.Claims["name"].(string)
	return claims
}
