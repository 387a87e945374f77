package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pixshare/pixshare-api/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles requests per client IP using a fixed Redis
// window. A Redis outage fails open so auth never hard-depends on it.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

func (rl *RateLimiter) allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}

	return count.Val() <= int64(limit), nil
}

// Limit returns middleware allowing at most limit requests per window
// from one client IP, scoped by name so endpoints get separate buckets.
func (rl *RateLimiter) Limit(name string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil || rl.client == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Hash the IP so raw addresses never land in Redis.
			sum := sha256.Sum256([]byte(clientIP(r)))
			key := fmt.Sprintf("%s:%s:%x", rl.prefix, name, sum[:8])

			allowed, err := rl.allow(r.Context(), key, limit, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":"Too many requests. Please try again later","code":"RATE_LIMITED"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
