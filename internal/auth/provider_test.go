package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wecr8/damp-backend/pkg/config"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/firebase"
)

func newToolkitServer(t *testing.T, handler func(method string, body map[string]any) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		status, payload := handler(strings.TrimPrefix(r.URL.Path, "/"), body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerErr(message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": 400, "message": message}}
}

func TestNewProviderNotConfigured(t *testing.T) {
	provider, err := NewProvider(config.FirebaseConfig{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	ctx := context.Background()
	if _, err := provider.SignIn(ctx, "a@b.co", "secret1"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := provider.SendPasswordReset(ctx, "a@b.co"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := provider.Lookup(ctx, "tok"); !pkgerrors.HasCode(err, pkgerrors.CodeNotConfigured) {
		t.Fatalf("expected not configured code, got %v", err)
	}
}

func TestFirebaseProviderNormalizesErrors(t *testing.T) {
	cases := []struct {
		message string
		want    error
	}{
		{"INVALID_EMAIL", ErrInvalidEmail},
		{"WEAK_PASSWORD : Password should be at least 6 characters", ErrWeakPassword},
		{"EMAIL_EXISTS", ErrEmailInUse},
		{"EMAIL_NOT_FOUND", ErrUserNotFound},
		{"INVALID_PASSWORD", ErrWrongPassword},
		{"INVALID_LOGIN_CREDENTIALS", ErrWrongPassword},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", ErrTooManyRequests},
		{"OPERATION_NOT_ALLOWED", ErrUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			srv := newToolkitServer(t, func(string, map[string]any) (int, any) {
				return http.StatusBadRequest, providerErr(tc.message)
			})
			provider, err := NewProvider(config.FirebaseConfig{APIKey: "key", ProjectID: "damp-test"}, firebase.WithBaseURL(srv.URL))
			if err != nil {
				t.Fatalf("NewProvider: %v", err)
			}

			_, err = provider.SignIn(context.Background(), "a@b.co", "secret1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var apiErr *firebase.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected provider error to stay reachable, got %T", err)
			}
		})
	}
}

func TestFirebaseProviderSignUpMapsSession(t *testing.T) {
	srv := newToolkitServer(t, func(method string, body map[string]any) (int, any) {
		if method != "accounts:signUp" {
			t.Errorf("unexpected method %s", method)
		}
		if body["email"] != "new@example.com" {
			t.Errorf("unexpected email %v", body["email"])
		}
		return http.StatusOK, map[string]any{
			"localId":      "uid-1",
			"email":        "new@example.com",
			"idToken":      "id-token",
			"refreshToken": "refresh",
			"expiresIn":    "3600",
		}
	})
	provider, err := NewProvider(config.FirebaseConfig{APIKey: "key", ProjectID: "damp-test"}, firebase.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	sess, err := provider.SignUp(context.Background(), "new@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if sess.User.UID != "uid-1" || sess.IDToken != "id-token" || sess.ExpiresIn != 3600 {
		t.Fatalf("unexpected session %+v", sess)
	}
}
