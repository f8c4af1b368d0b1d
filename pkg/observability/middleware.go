package observability

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/volunteerhub/volunteerhub/pkg/httputil"
)

// LoggingMiddleware logs each request with method, path, status and latency,
// and injects the logger into the request context.
func LoggingMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := WithLogger(r.Context(), logger)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			FromContext(ctx).WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			}).Info("request handled")
		})
	}
}

// RecoveryMiddleware recovers from handler panics and returns a 500 error
func RecoveryMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithField("panic", fmt.Sprintf("%v", rec)).
						WithField("stack", string(debug.Stack())).
						WithField("path", r.URL.Path).
						Error("panic in handler")
					httputil.WriteInternalError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
