package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	pkgauth "github.com/wecr8/damp-backend/pkg/auth"
	"github.com/wecr8/damp-backend/pkg/config"
)

type stubVerifier struct {
	claims *pkgauth.IDTokenClaims
}

func (s stubVerifier) VerifyIDToken(_ context.Context, token string) (*pkgauth.IDTokenClaims, error) {
	if token != "good" {
		return nil, errors.New("signature mismatch")
	}
	return s.claims, nil
}

func verifiedClaims(uid, email string) *pkgauth.IDTokenClaims {
	return &pkgauth.IDTokenClaims{
		Email:            email,
		EmailVerified:    true,
		RegisteredClaims: jwt.RegisteredClaims{Subject: uid},
	}
}

func call(h func(http.Handler) http.Handler, authorization string, inner http.HandlerFunc) int {
	if inner == nil {
		inner = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h(inner).ServeHTTP(rec, req)
	return rec.Code
}

func TestAuth(t *testing.T) {
	v := stubVerifier{claims: verifiedClaims("u1", "fan@example.com")}
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"good", "bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, call(Auth(v, nil), tc.header, nil))
		})
	}
}

func TestAuthRejectsSubjectlessToken(t *testing.T) {
	v := stubVerifier{claims: verifiedClaims("", "fan@example.com")}
	assert.Equal(t, http.StatusUnauthorized, call(Auth(v, nil), "Bearer good", nil))
}

func TestAuthSeedsIdentity(t *testing.T) {
	var got Identity
	code := call(Auth(stubVerifier{claims: verifiedClaims("u1", "fan@example.com")}, nil), "Bearer good",
		func(w http.ResponseWriter, r *http.Request) {
			got, _ = IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Identity{UID: "u1", Email: "fan@example.com", EmailVerified: true, Token: "good"}, got)
}

func TestOptionalAuth(t *testing.T) {
	anonymous := func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Error("expected anonymous context")
		}
		w.WriteHeader(http.StatusOK)
	}
	assert.Equal(t, http.StatusOK, call(OptionalAuth(nil, nil), "", anonymous))
	assert.Equal(t, http.StatusServiceUnavailable, call(OptionalAuth(nil, nil), "Bearer good", nil),
		"a token cannot be ignored just because auth is not wired")
	assert.Equal(t, http.StatusUnauthorized, call(OptionalAuth(stubVerifier{}, nil), "Bearer forged", nil))
}

func TestRequireAdmin(t *testing.T) {
	admins := config.AdminConfig{Emails: []string{"ops@dampdrink.com"}}
	cases := []struct {
		name   string
		claims *pkgauth.IDTokenClaims
		want   int
	}{
		{"allow listed", verifiedClaims("u1", "ops@dampdrink.com"), http.StatusNoContent},
		{"case insensitive", verifiedClaims("u1", "OPS@dampdrink.com"), http.StatusNoContent},
		{"unverified", &pkgauth.IDTokenClaims{Email: "ops@dampdrink.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}, http.StatusForbidden},
		{"not listed", verifiedClaims("u1", "someone@example.com"), http.StatusForbidden},
		{"anonymous", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), tc.claims, "good"))
			rec := httptest.NewRecorder()
			RequireAdmin(admins, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, present := bearerToken("  Bearer   abc.def ")
	assert.True(t, present)
	assert.Equal(t, "abc.def", tok)

	_, present = bearerToken("   ")
	assert.False(t, present)
}
