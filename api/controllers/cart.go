package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	cartsvc "github.com/wecr8/damp-backend/internal/cart"
	"github.com/wecr8/damp-backend/internal/checkout"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=20"`
}

type createCartRequest struct {
	Items []addItemRequest `json:"items" validate:"omitempty,max=10,dive"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartCheckoutRequest struct {
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	SuccessURL    string `json:"successUrl" validate:"omitempty,url"`
	CancelURL     string `json:"cancelUrl" validate:"omitempty,url"`
}

// CartCreate starts a new server-side cart, optionally seeded with items.
func CartCreate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "cart service unavailable"))
			return
		}

		var payload createCartRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		c, err := svc.Create(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithCartID(r.Context(), c.ID)
		for _, item := range payload.Items {
			c, err = svc.AddItem(ctx, c.ID, item.ProductID, item.Quantity)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, cartsvc.NewView(c, svc.Currency()))
	}
}

func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "cart service unavailable"))
			return
		}
		c, err := svc.Get(r.Context(), chi.URLParam(r, "cartId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.NewView(c, svc.Currency()))
	}
}

// CartAddItem adds a catalog product; an omitted or zero quantity adds one unit.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "cart service unavailable"))
			return
		}
		cartID := chi.URLParam(r, "cartId")
		ctx := logg.WithCartID(r.Context(), cartID)

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		c, err := svc.AddItem(ctx, cartID, strings.TrimSpace(payload.ProductID), payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.NewView(c, svc.Currency()))
	}
}

func CartSetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "cart service unavailable"))
			return
		}
		cartID := chi.URLParam(r, "cartId")
		ctx := logg.WithCartID(r.Context(), cartID)

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		c, err := svc.SetQuantity(ctx, cartID, chi.URLParam(r, "productId"), payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.NewView(c, svc.Currency()))
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "cart service unavailable"))
			return
		}
		cartID := chi.URLParam(r, "cartId")
		ctx := logg.WithCartID(r.Context(), cartID)

		c, err := svc.RemoveItem(ctx, cartID, chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.NewView(c, svc.Currency()))
	}
}

type cartCheckoutService interface {
	CreateSessionForCart(ctx context.Context, cartID string, req checkout.SessionRequest) (*checkout.Session, error)
}

// CartCheckout opens a hosted payment session for the stored cart. The cart
// itself is cleared by the payment webhook, not here.
func CartCheckout(svc cartCheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "checkout is not configured"))
			return
		}
		cartID := chi.URLParam(r, "cartId")
		ctx := logg.WithCartID(r.Context(), cartID)

		var payload cartCheckoutRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.CreateSessionForCart(ctx, cartID, checkout.SessionRequest{
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
