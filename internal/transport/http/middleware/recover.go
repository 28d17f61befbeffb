package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/api"
)

// Recoverer turns handler panics into 500 responses. http.ErrAbortHandler
// is re-raised so aborted streams keep their stdlib semantics.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic recovered",
					"err", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"requestId", GetRequestID(r.Context()),
					"stack", string(debug.Stack()),
				)
				api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", GetRequestID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
