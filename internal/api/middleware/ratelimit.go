package middleware

import (
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/infrastructure/ratelimit"
)

// RateLimit allows at most the limiter's quota of requests per client IP.
// Limiter errors are logged and let the request through.
func RateLimit(limiter ratelimit.Limiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn().Err(err).Str("client_ip", ip).Str("path", r.URL.Path).Msg("rate limiter unavailable, allowing request")
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				respondError(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the host part of RemoteAddr. Forwarding headers only count when
// chi's RealIP runs in front, which the router does on request.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
