package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	"github.com/wecr8/damp-backend/internal/checkout"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

type createSessionRequest struct {
	CartID        string              `json:"cartId"`
	Items         []checkout.LineItem `json:"items" validate:"required,min=1,max=10,dive"`
	CustomerEmail string              `json:"customerEmail" validate:"omitempty,email"`
	SuccessURL    string              `json:"successUrl" validate:"omitempty,url"`
	CancelURL     string              `json:"cancelUrl" validate:"omitempty,url"`
}

// CheckoutCreateSession opens a hosted payment session for an ad-hoc item list,
// the path used by the single-page pre-order funnel.
func CheckoutCreateSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "checkout is not configured"))
			return
		}

		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if payload.CartID != "" {
			ctx = logg.WithCartID(ctx, payload.CartID)
		}
		session, err := svc.CreateSession(ctx, checkout.SessionRequest{
			CartID:        strings.TrimSpace(payload.CartID),
			Items:         payload.Items,
			CustomerEmail: strings.TrimSpace(payload.CustomerEmail),
			SuccessURL:    payload.SuccessURL,
			CancelURL:     payload.CancelURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func CheckoutGetSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "checkout is not configured"))
			return
		}
		details, err := svc.RetrieveSession(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

func SalesStats(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "checkout is not configured"))
			return
		}
		stats, err := svc.SalesStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		responses.WriteSuccess(w, stats)
	}
}
