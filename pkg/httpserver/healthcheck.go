package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/byteai/builder/pkg/logger"
)

// Check is a named dependency probe, e.g. a store ping.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// checkTimeout bounds each readiness probe.
const checkTimeout = 3 * time.Second

// HealthCheckHandler serves liveness when no checks are given ("ALIVE") and
// readiness otherwise: every check must pass for "READY", the first failure
// answers 503 "NOT_READY".
func HealthCheckHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")

		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := c.Fn(ctx)
			cancel()
			if err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					slog.String("check", c.Name),
					logger.Error(err),
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
