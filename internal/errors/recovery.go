package errors

import (
	"net/http"
	"runtime/debug"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/optimization"
)

// RecoveryMiddleware turns a panicking handler into a logged 500.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					fields := map[string]interface{}{
						"error": rec,
						"stack": string(debug.Stack()),
					}
					if r != nil {
						fields["method"] = r.Method
						fields["path"] = r.URL.Path
						fields["query"] = r.URL.RawQuery
					}
					logger.Error("Recovered from panic", fields)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler logs every response with a status of 400 or above.
func ErrorHandler(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			if rw.status >= http.StatusBadRequest {
				logger.Warn("Request error", map[string]interface{}{
					"status": rw.status,
					"method": r.Method,
					"path":   r.URL.Path,
					"ip":     r.RemoteAddr,
				})
			}
		})
	}
}

// StatusCode maps an error chain onto the HTTP status a handler should send.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrMalformed),
		Is(err, atsp.ErrInvalidInstance),
		Is(err, optimization.ErrInvalidConfig),
		Is(err, optimization.ErrDimension),
		Is(err, optimization.ErrNoMoveKinds):
		return http.StatusBadRequest
	case Is(err, ErrConflict):
		return http.StatusConflict
	case Is(err, ErrUnsupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing the header.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
