package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/wecr8/damp-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Caller-supplied ids are echoed only when they look like an id, never free text.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags the request context, the logger and the response with one id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), id)))
		})
	}
}
