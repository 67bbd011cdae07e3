package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/usermeta"
)

// CounterResetter is the part of Service the Resetter needs.
type CounterResetter interface {
	ResetMonthlyCounter(ctx context.Context, userID string) error
}

// Resetter zeroes every user's current-plan counter on a schedule.
type Resetter struct {
	svc      CounterResetter
	users    usermeta.UserLister
	schedule Schedule
	log      *slog.Logger
	now      func() time.Time
}

// ResetterOption configures a Resetter.
type ResetterOption func(*Resetter)

// WithSchedule overrides the default of the first of the month at 00:00.
func WithSchedule(s Schedule) ResetterOption {
	return func(r *Resetter) {
		if s != nil {
			r.schedule = s
		}
	}
}

// WithResetterLogger sets the logger.
func WithResetterLogger(l *slog.Logger) ResetterOption {
	return func(r *Resetter) {
		if l != nil {
			r.log = l
		}
	}
}

// WithResetterClock overrides time.Now.
func WithResetterClock(now func() time.Time) ResetterOption {
	return func(r *Resetter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResetter creates a Resetter. Panics if svc or users is nil.
func NewResetter(svc CounterResetter, users usermeta.UserLister, opts ...ResetterOption) *Resetter {
	if svc == nil {
		panic("quota: CounterResetter is required")
	}
	if users == nil {
		panic("quota: usermeta.UserLister is required")
	}
	r := &Resetter{
		svc:      svc,
		users:    users,
		schedule: MonthlyOn(1, 0, 0),
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("quota_resetter"))
	return r
}

// Run blocks until ctx is done, resetting counters at every scheduled time.
func (r *Resetter) Run(ctx context.Context) error {
	r.log.InfoContext(ctx, "quota resetter started", slog.String("schedule", r.schedule.String()))
	defer r.log.InfoContext(ctx, "quota resetter stopped")

	for {
		now := r.now()
		next := r.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		n, err := r.ResetAll(ctx)
		if err != nil {
			r.log.ErrorContext(ctx, "monthly reset finished with errors",
				slog.Int("users", n), logger.Error(err))
			continue
		}
		r.log.InfoContext(ctx, "monthly reset finished", slog.Int("users", n))
	}
}

// ResetAll resets every listed user once. A failing user does not stop the
// run; all failures are joined into the returned error. The count covers
// successful resets only.
func (r *Resetter) ResetAll(ctx context.Context) (int, error) {
	var (
		n    int
		errs []error
	)
	err := r.users.ListUserIDs(ctx, func(userID string) error {
		if err := r.svc.ResetMonthlyCounter(ctx, userID); err != nil {
			r.log.WarnContext(ctx, "failed to reset counter", logger.UserID(userID), logger.Error(err))
			errs = append(errs, err)
			return nil
		}
		n++
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return n, errors.Join(errs...)
}
