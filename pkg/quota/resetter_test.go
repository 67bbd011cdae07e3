package quota_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteai/builder/pkg/quota"
	"github.com/byteai/builder/pkg/usermeta"
)

func TestResetter_ResetAll(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	for _, id := range []string{"user_a", "user_b"} {
		seedProgress(t, store, quota.UserProgress{UserID: id, TotalAppsGenerated: 10, CurrentPlanAppsGenerated: 5, SubscriptionStatus: quota.StatusPro})
	}
	svc := newService(t, store, nil)

	n, err := quota.NewResetter(svc, store).ResetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, id := range []string{"user_a", "user_b"} {
		p := storedProgress(t, store, id)
		assert.Zero(t, p.CurrentPlanAppsGenerated)
		assert.Equal(t, int64(10), p.TotalAppsGenerated)
	}
}

type resetFunc func(ctx context.Context, userID string) error

func (f resetFunc) ResetMonthlyCounter(ctx context.Context, userID string) error { return f(ctx, userID) }

func TestResetter_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	for _, id := range []string{"user_a", "user_b", "user_c"} {
		require.NoError(t, store.UpdateUserMetadata(context.Background(), id, usermeta.Update{}))
	}
	boom := errors.New("write failed")
	var seen []string
	svc := resetFunc(func(_ context.Context, id string) error {
		seen = append(seen, id)
		if id == "user_b" {
			return boom
		}
		return nil
	})

	n, err := quota.NewResetter(svc, store).ResetAll(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"user_a", "user_b", "user_c"}, seen)
}

func TestResetter_Run(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	require.NoError(t, store.UpdateUserMetadata(context.Background(), "user_a", usermeta.Update{}))

	var calls atomic.Int32
	svc := resetFunc(func(context.Context, string) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- quota.NewResetter(svc, store, quota.WithSchedule(quota.Every(5*time.Millisecond))).Run(ctx)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("resetter did not stop")
	}
}

func TestMonthlyOn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		sched quota.Schedule
		from  time.Time
		want  time.Time
	}{
		{
			name:  "later this month",
			sched: quota.MonthlyOn(15, 0, 0),
			from:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "exact time rolls to next month",
			sched: quota.MonthlyOn(1, 0, 0),
			from:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "day clamped in february",
			sched: quota.MonthlyOn(31, 6, 30),
			from:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, 2, 28, 6, 30, 0, 0, time.UTC),
		},
		{
			name:  "december wraps year",
			sched: quota.MonthlyOn(1, 0, 0),
			from:  time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sched.Next(tt.from))
		})
	}

	assert.Equal(t, "monthly on day 1 at 00:00", quota.MonthlyOn(0, 0, 0).String())
	assert.Panics(t, func() { quota.Every(0) })
}
