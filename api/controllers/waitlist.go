package controllers

import (
	"net/http"

	"github.com/wecr8/damp-backend/api/middleware"
	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	"github.com/wecr8/damp-backend/internal/waitlist"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

type joinWaitlistRequest struct {
	Email  string `json:"email" validate:"required,max=254"`
	Name   string `json:"name" validate:"omitempty,max=100"`
	Source string `json:"source" validate:"omitempty,max=50"`
}

// WaitlistJoin answers 201 for a new signup and 200 with alreadyExists for a
// repeat email.
func WaitlistJoin(svc waitlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "waitlist unavailable"))
			return
		}
		var payload joinWaitlistRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Save(r.Context(), waitlist.SaveInput{
			Email:  payload.Email,
			Name:   validators.SanitizeString(payload.Name, 100),
			Source: validators.SanitizeString(payload.Source, 50),
			IP:     middleware.ClientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.AlreadyExists {
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// WaitlistCount never fails the page: storage errors are logged and reported as zero.
func WaitlistCount(svc waitlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var count int64
		if svc != nil {
			n, err := svc.Count(r.Context())
			if err != nil {
				logg.Error(r.Context(), "waitlist.count_failed", err)
			} else {
				count = n
			}
		}
		w.Header().Set("Cache-Control", "public, max-age=30")
		responses.WriteSuccess(w, map[string]int64{"count": count})
	}
}
