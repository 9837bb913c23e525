package middleware

import (
	"net/http"

	"github.com/wecr8/damp-backend/api/responses"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

// AdminChecker decides whether an email is on the admin allow list.
type AdminChecker interface {
	IsAdmin(email string) bool
}

// RequireAdmin runs after Auth. Only verified emails on the allow list get
// through, so an unverified password signup cannot claim an admin address.
func RequireAdmin(admins AdminChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			email := VerifiedEmailFromContext(ctx)
			if email == "" || admins == nil || !admins.IsAdmin(email) {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"email":          EmailFromContext(ctx),
					"email_verified": email != "",
				}), "admin.denied")
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(logg.WithField(ctx, "admin_email", email)))
		})
	}
}
