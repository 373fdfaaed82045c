package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/sakif/prompt-vault/internal/ratelimit"
)

// Limiter is satisfied by *ratelimit.KeyedRateLimiter.
type Limiter interface {
	Allow(key string) bool
}

var _ Limiter = (*ratelimit.KeyedRateLimiter)(nil)

// RateLimit rejects requests with 429 once a client IP exhausts its bucket.
// It keys on r.RemoteAddr, so mount it after chi's RealIP middleware.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					slog.String("ip", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","message":"Too many requests. Please try again later."}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr when there is one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
