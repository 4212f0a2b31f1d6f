package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/hivelabs/hive-server/internal/api/errors"
	"github.com/hivelabs/hive-server/pkg/logger"
)

// Recovery returns a middleware that recovers from panics and logs the error.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						"error", rec,
						"stack_trace", string(debug.Stack()),
						"request_id", logger.RequestIDFromContext(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
					)

					apierrors.WriteInternalError(w, "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
