package addon

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"subsync/internal/logging"
)

// correlationHeader carries the request id back to callers.
const correlationHeader = "X-Correlation-Id"

// middleware wraps a handler with correlation ids, request logging, panic
// recovery, and per-route request counting.
func middleware(logger *slog.Logger, metrics *Metrics, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(correlationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		ctx := logging.WithCorrelationID(r.Context(), correlationID)
		w.Header().Set(correlationHeader, correlationID)

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				logging.WithContext(ctx, logger).Error("HTTP handler panic",
					logging.Any("panic", rec),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.String("remote_addr", r.RemoteAddr),
				)
				if !wrapped.wroteHeader {
					writeError(wrapped, http.StatusInternalServerError, "internal server error")
				}
			}
			metrics.ObserveRequest(route, strconv.Itoa(wrapped.statusCode))
			logging.WithContext(ctx, logger).Info("HTTP request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", wrapped.statusCode),
				logging.Duration("duration", time.Since(start)),
				logging.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// responseWriter captures status codes for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(p)
}
