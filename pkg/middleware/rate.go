// Package middleware provides the storefront's HTTP middleware.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// RateLimit limits each client IP to max requests per window. Counting is
// delegated to counter so limits are shared across instances when it is
// Redis-backed. If the counter fails the request is let through.
func RateLimit(counter cache.Counter, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, reset, err := counter.Hit(r.Context(), clientIP(r), window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("rate: counter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(max) - n
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(max) {
				w.Header().Set("Retry-After", strconv.Itoa(int(reset.Round(time.Second).Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
