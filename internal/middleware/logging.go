// Package middleware contains HTTP middleware functions.
//
// WHAT IS MIDDLEWARE?
// A middleware takes a handler and returns a new handler that does some
// extra work around it. Logging, rate limiting and panic recovery all live
// here so the prompt handlers never have to think about them.
//
// The shape is always the same:
//
//	func MyMiddleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before: inspect or reject the request
//	        next.ServeHTTP(w, r)
//	        // after: inspect what the handler wrote
//	    })
//	}
//
// ORDER:
// chi runs middleware in the order it is registered with Use. RateLimit
// reads r.RemoteAddr, so it must come after chi's RealIP, which rewrites
// RemoteAddr from X-Forwarded-For / X-Real-IP.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// the number of bytes written.
//
// WHY WRAP?
// http.ResponseWriter has no getter for the status a handler chose. By
// embedding the real writer and overriding WriteHeader and Write, we see
// every call on its way through and can log it after the handler returns.
type responseWriter struct {
	http.ResponseWriter       // Embedded: every method we don't override passes through
	statusCode          int   // Set by WriteHeader; defaults to 200
	written             int64 // Body bytes, summed across Write calls
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
// Without it, Flush and SetWriteDeadline would stop at our wrapper.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger returns an HTTP middleware that logs one line per request with
// method, path, status, duration, bytes written and the chi request ID.
// 5xx responses are logged at Error, 4xx at Warn, the rest at Info.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // Default if WriteHeader is never called
			}

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case wrapped.statusCode >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
