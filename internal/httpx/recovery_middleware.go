package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw, ok := w.(*responseWriter)
			if !ok {
				rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			}
			defer func() {
				if err := recover(); err != nil {
					// Request id middleware runs inside this one; it echoes the id on the response.
					requestID := RequestIDFrom(r)
					if requestID == "" {
						requestID = rw.Header().Get(requestIDHeader)
					}
					if requestID != "" {
						r = r.WithContext(ContextWithRequestID(r.Context(), requestID))
					}
					logger.Error("panic recovered",
						"request_id", requestID,
						"error", err,
						"stack", string(debug.Stack()),
					)
					if !rw.wroteHeader() {
						JSONError(rw, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
					}
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
