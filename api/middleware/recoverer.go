package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/wecr8/damp-backend/api/responses"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				ctx := logg.WithFields(r.Context(), map[string]any{
					"panic":       fmt.Sprint(v),
					"panic_stack": string(debug.Stack()),
				})
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handler panicked"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
