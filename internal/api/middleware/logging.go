// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hivelabs/hive-server/pkg/logger"
)

// RequestLogger returns a middleware that logs HTTP requests. It copies
// chi's request ID into the logger context so downstream handlers inherit
// it. Query strings are deliberately omitted: bearer tokens travel as
// query parameters and must never reach the logs in cleartext.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.ContextWithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
			r = r.WithContext(ctx)

			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithContext(ctx).Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
