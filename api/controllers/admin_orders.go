package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wecr8/damp-backend/api/middleware"
	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	"github.com/wecr8/damp-backend/internal/orders"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/pagination"
)

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,oneof=duplicate fraudulent requested_by_customer abandoned"`
}

// AdminOrdersList returns recorded pre-orders newest first with cursor pagination.
func AdminOrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "orders unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: validators.QueryString(r, "cursor"),
		}

		var filters orders.ListFilters
		if raw := validators.QueryString(r, "status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		filters.Email = strings.ToLower(validators.QueryString(r, "email"))

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "orders unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminOrderCapture collects the authorized payment for a pre-order.
func AdminOrderCapture(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "orders unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := adminCtx(r, logg, orderID)

		view, err := svc.Capture(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "admin.order_captured")
		responses.WriteSuccess(w, view)
	}
}

// AdminOrderCancel releases the payment authorization and cancels the order.
func AdminOrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "orders unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cancelOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := adminCtx(r, logg, orderID)

		view, err := svc.Cancel(ctx, orderID, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "admin.order_cancelled")
		responses.WriteSuccess(w, view)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func adminCtx(r *http.Request, logg *logger.Logger, orderID uuid.UUID) context.Context {
	return logg.WithFields(r.Context(), map[string]any{
		"order_id":    orderID.String(),
		"admin_email": middleware.EmailFromContext(r.Context()),
	})
}
