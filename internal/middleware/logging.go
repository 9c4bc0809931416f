package middleware

import (
	"net/http"
	"time"

	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
)

// LoggingMiddleware emits one structured line per request.
type LoggingMiddleware struct {
	logger logger.Logger
	// slow marks the latency past which a request logs at Warn.
	slow time.Duration
}

func NewLoggingMiddleware(log logger.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: log, slow: 2 * time.Second}
}

func (m *LoggingMiddleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"bytes":       rec.bytes,
			"duration_ms": elapsed.Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if reqID, ok := RequestIDFromContext(r.Context()); ok {
			fields["request_id"] = reqID
		}
		if svc, ok := ServiceFromContext(r.Context()); ok {
			fields["caller_service"] = svc
		}

		if elapsed >= m.slow {
			m.logger.Warn("Slow request", fields)
			return
		}
		m.logger.Info("Request handled", fields)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}
