package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLog writes one structured line per request
type AccessLog struct {
	logger *zap.Logger
}

// NewAccessLog creates a new access log middleware
func NewAccessLog(logger *zap.Logger) *AccessLog {
	return &AccessLog{logger: logger}
}

// Handler wraps next and logs method, path, status and duration once the
// response is complete. Health check endpoints log at debug level.
func (m *AccessLog) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}

		switch {
		case r.URL.Path == "/healthz" || r.URL.Path == "/readyz":
			m.logger.Debug("request completed", fields...)
		case ww.Status() >= http.StatusInternalServerError:
			m.logger.Warn("request completed", fields...)
		default:
			m.logger.Info("request completed", fields...)
		}
	})
}
