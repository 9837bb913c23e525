package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wecr8/damp-backend/api/middleware"
	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	"github.com/wecr8/damp-backend/internal/auth"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

type signUpRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=100"`
}

func authUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeNotConfigured, auth.ErrNotInitialized.Message())
}

// AuthSignUp creates an email/password account and returns the provider session.
func AuthSignUp(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, authUnavailable())
			return
		}
		var payload signUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.SignUp(r.Context(), auth.SignUpInput{
			Email:       payload.Email,
			Password:    payload.Password,
			DisplayName: payload.DisplayName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logg.Info(logg.WithUID(r.Context(), sess.User.UID), "auth.signed_up")
		responses.WriteSuccessStatus(w, http.StatusCreated, sess)
	}
}

func AuthSignIn(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, authUnavailable())
			return
		}
		var payload signInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.SignIn(r.Context(), payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}

// AuthSignOut acknowledges a sign-out. Tokens are held by the client, so there
// is no server state to drop.
func AuthSignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]bool{"signedOut": true})
	}
}

// AuthPasswordReset sends the reset email. Unknown accounts get the same
// response as known ones.
func AuthPasswordReset(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, authUnavailable())
			return
		}
		var payload passwordResetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SendPasswordReset(r.Context(), payload.Email); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"sent": true})
	}
}

// AuthMe returns the account behind the bearer token set by the auth middleware.
func AuthMe(svc auth.Service, admins middleware.AdminChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, authUnavailable())
			return
		}
		ctx := r.Context()
		user, err := svc.CurrentUser(ctx, middleware.IDTokenFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user":    user,
			"isAdmin": isAdmin(ctx, admins),
		})
	}
}

func AuthUpdateMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, authUnavailable())
			return
		}
		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		user, err := svc.UpdateProfile(ctx, middleware.IDTokenFromContext(ctx), payload.DisplayName)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": user})
	}
}

func isAdmin(ctx context.Context, admins middleware.AdminChecker) bool {
	email := middleware.VerifiedEmailFromContext(ctx)
	return email != "" && admins != nil && admins.IsAdmin(email)
}
