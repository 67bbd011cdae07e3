package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/byteai/builder/pkg/logger"
)

// KeyFunc extracts the bucket key from a request.
type KeyFunc func(r *http.Request) string

type middlewareConfig struct {
	log      *slog.Logger
	failOpen bool
}

type MiddlewareOption func(*middlewareConfig)

func WithMiddlewareLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// FailOpen lets requests through when the store errors. The default
// answers 500.
func FailOpen() MiddlewareOption {
	return func(c *middlewareConfig) { c.failOpen = true }
}

// Middleware limits requests per key.
func Middleware(b *Bucket, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{log: logger.Discard()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := b.Allow(r.Context(), key)
			if err != nil {
				cfg.log.ErrorContext(r.Context(), "rate limit check failed", logger.Error(err))
				if cfg.failOpen {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				if retry := result.RetryAfter(time.Now()); retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				}
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
