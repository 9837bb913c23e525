package controllers

import (
	"net/http"

	"github.com/wecr8/damp-backend/api/middleware"
	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	"github.com/wecr8/damp-backend/internal/campaign"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

type adjustCampaignRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=200"`
}

func CampaignStatus(svc campaign.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "campaign tracking unavailable"))
			return
		}
		status, err := svc.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=30")
		responses.WriteSuccess(w, status)
	}
}

// AdminCampaignAdjust applies a manual correction to the pre-order total.
func AdminCampaignAdjust(svc campaign.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "campaign tracking unavailable"))
			return
		}
		var payload adjustCampaignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithField(r.Context(), "admin_email", middleware.EmailFromContext(r.Context()))
		adj, err := svc.Adjust(ctx, payload.Delta, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, adj)
	}
}
