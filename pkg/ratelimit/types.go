package ratelimit

import (
	"context"
	"time"
)

// Config defines a token bucket.
type Config struct {
	Capacity       int           `env:"CAPACITY" envDefault:"10"`       // burst size
	RefillRate     int           `env:"REFILL_RATE" envDefault:"1"`     // tokens per interval
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"6s"`
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return errorf(ErrInvalidConfig, "capacity must be positive, got %d", c.Capacity)
	case c.RefillRate <= 0:
		return errorf(ErrInvalidConfig, "refill rate must be positive, got %d", c.RefillRate)
	case c.RefillInterval <= 0:
		return errorf(ErrInvalidConfig, "refill interval must be positive, got %v", c.RefillInterval)
	}
	return nil
}

// Result is the outcome of one check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time // next refill
	Allowed   bool
}

// RetryAfter returns how long to wait before the next attempt, or 0 when
// the request was allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Store keeps bucket state.
type Store interface {
	// Take removes n tokens if that many are available. n == 0 only refills.
	Take(ctx context.Context, key string, n int, cfg Config) (Result, error)
	Reset(ctx context.Context, key string) error
}
