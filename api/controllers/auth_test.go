package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/wecr8/damp-backend/internal/auth"
	pkgauth "github.com/wecr8/damp-backend/pkg/auth"
	"github.com/wecr8/damp-backend/pkg/config"
)

type stubAuthService struct {
	session   *auth.Session
	user      *auth.User
	err       error
	gotToken  string
	gotName   string
	resetSent string
}

func (s *stubAuthService) SignUp(_ context.Context, in auth.SignUpInput) (*auth.Session, error) {
	s.gotName = in.DisplayName
	return s.session, s.err
}

func (s *stubAuthService) SignIn(context.Context, string, string) (*auth.Session, error) {
	return s.session, s.err
}

func (s *stubAuthService) SendPasswordReset(_ context.Context, email string) error {
	s.resetSent = email
	return s.err
}

func (s *stubAuthService) VerifyIDToken(context.Context, string) (*pkgauth.IDTokenClaims, error) {
	return nil, s.err
}

func (s *stubAuthService) CurrentUser(_ context.Context, idToken string) (*auth.User, error) {
	s.gotToken = idToken
	return s.user, s.err
}

func (s *stubAuthService) UpdateProfile(_ context.Context, idToken, displayName string) (*auth.User, error) {
	s.gotToken = idToken
	s.gotName = displayName
	if s.err != nil {
		return nil, s.err
	}
	u := *s.user
	u.DisplayName = displayName
	return &u, nil
}

func testSession() *auth.Session {
	return &auth.Session{
		User:         auth.User{UID: "uid-1", Email: "fan@example.com", DisplayName: "Fan"},
		IDToken:      "id-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    3600,
	}
}

func TestAuthSignUp(t *testing.T) {
	stub := &stubAuthService{session: testSession()}
	rec := serve(t, http.MethodPost, "/api/v1/auth/signup", "/api/v1/auth/signup",
		`{"email":"fan@example.com","password":"secret1","displayName":"Fan"}`, AuthSignUp(stub, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	sess := decodeData[auth.Session](t, rec)
	if sess.IDToken != "id-token" || sess.User.UID != "uid-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if stub.gotName != "Fan" {
		t.Fatalf("display name not forwarded: %q", stub.gotName)
	}
}

func TestAuthErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "email in use", err: auth.ErrEmailInUse, want: http.StatusConflict},
		{name: "weak password", err: auth.ErrWeakPassword, want: http.StatusBadRequest},
		{name: "wrong password", err: auth.ErrWrongPassword, want: http.StatusUnauthorized},
		{name: "not initialized", err: auth.ErrNotInitialized, want: http.StatusServiceUnavailable},
		{name: "throttled", err: auth.ErrTooManyRequests, want: http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{err: tc.err}
			rec := serve(t, http.MethodPost, "/api/v1/auth/signin", "/api/v1/auth/signin",
				`{"email":"fan@example.com","password":"secret1"}`, AuthSignIn(stub, nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestAuthPasswordResetHidesUnknownAccounts(t *testing.T) {
	stub := &stubAuthService{err: auth.ErrUserNotFound}
	rec := serve(t, http.MethodPost, "/api/v1/auth/password-reset", "/api/v1/auth/password-reset",
		`{"email":"ghost@example.com"}`, AuthPasswordReset(stub, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if stub.resetSent != "ghost@example.com" {
		t.Fatalf("reset not requested: %q", stub.resetSent)
	}

	stub.err = auth.ErrInvalidEmail
	rec = serve(t, http.MethodPost, "/api/v1/auth/password-reset", "/api/v1/auth/password-reset",
		`{"email":"nope"}`, AuthPasswordReset(stub, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthSignOutAcknowledges(t *testing.T) {
	rec := serve(t, http.MethodPost, "/api/v1/auth/signout", "/api/v1/auth/signout", "", AuthSignOut())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAuthMeAndUpdate(t *testing.T) {
	stub := &stubAuthService{user: &testSession().User}
	rec := serve(t, http.MethodGet, "/api/v1/auth/me", "/api/v1/auth/me", "", AuthMe(stub, config.AdminConfig{Emails: []string{"fan@example.com"}}, nil), withUser("uid-1", "fan@example.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if me := decodeData[map[string]any](t, rec); me["isAdmin"] != true {
		t.Fatalf("expected allow-listed verified email to be admin, got %v", me["isAdmin"])
	}
	if stub.gotToken != "token-uid-1" {
		t.Fatalf("expected token from context, got %q", stub.gotToken)
	}

	rec = serve(t, http.MethodPatch, "/api/v1/auth/me", "/api/v1/auth/me", `{"displayName":"New Name"}`, AuthUpdateMe(stub, nil), withUser("uid-1", "fan@example.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	got := decodeData[map[string]auth.User](t, rec)["user"]
	if got.DisplayName != "New Name" {
		t.Fatalf("unexpected user %+v", got)
	}

	rec = serve(t, http.MethodPatch, "/api/v1/auth/me", "/api/v1/auth/me", `{}`, AuthUpdateMe(stub, nil), withUser("uid-1", "fan@example.com"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing display name, got %d", rec.Code)
	}
}

func TestAuthNotConfigured(t *testing.T) {
	rec := serve(t, http.MethodPost, "/api/v1/auth/signin", "/api/v1/auth/signin",
		`{"email":"fan@example.com","password":"secret1"}`, AuthSignIn(nil, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
