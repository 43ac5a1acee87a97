package server

import (
	"net"
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/ratelimit"
	"marketplace/services/api-gateway/internal/port"
)

// RateLimitMiddleware ограничивает запросы по IP клиента.
// Ставится после middleware.RealIP.
func RateLimitMiddleware(limiter *ratelimit.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Allow(key) {
				contextkeys.LoggerFromContext(r.Context()).Warn("Rate limit exceeded", port.Fields{"client": key})
				w.Header().Set("Retry-After", "1")
				WriteJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey - адрес клиента без порта.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
