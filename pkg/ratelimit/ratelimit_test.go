package ratelimit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteai/builder/pkg/ratelimit"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewBucket_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ratelimit.Config
	}{
		{"zero capacity", ratelimit.Config{RefillRate: 1, RefillInterval: time.Second}},
		{"zero rate", ratelimit.Config{Capacity: 1, RefillInterval: time.Second}},
		{"zero interval", ratelimit.Config{Capacity: 1, RefillRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimit.NewBucket(ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0)), tt.cfg)
			assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
		})
	}
}

func TestMemoryStore_RefillsWholeIntervals(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0), ratelimit.WithClock(clk.Now))
	defer store.Close()

	b, err := ratelimit.NewBucket(store, ratelimit.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	for range 2 {
		res, err := b.Allow(ctx, "user_1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := b.Allow(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Minute, res.RetryAfter(clk.Now()))

	other, err := b.Allow(ctx, "user_2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "buckets are per key")

	clk.Advance(90 * time.Second)
	res, err = b.Allow(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	clk.Advance(30 * time.Second)
	res, err = b.Status(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining, "the half interval carried over")

	require.NoError(t, b.Reset(ctx, "user_1"))
	res, err = b.Status(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestBucket_AllowNRejectsNonPositive(t *testing.T) {
	t.Parallel()

	b, err := ratelimit.NewBucket(ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0)),
		ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)

	_, err = b.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidTokenCount)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b, err := ratelimit.NewBucket(ratelimit.NewRedisStore(client, "test:"),
		ratelimit.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	for i := range 2 {
		res, err := b.Allow(ctx, "user_1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}
	res, err := b.Allow(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, mr.Exists("test:ratelimit:user_1"))
	assert.Positive(t, mr.TTL("test:ratelimit:user_1"))

	require.NoError(t, b.Reset(ctx, "user_1"))
	res, err = b.Allow(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	b, err := ratelimit.NewBucket(ratelimit.NewRedisStore(client, ""),
		ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)

	_, err = b.Allow(context.Background(), "user_1")
	assert.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0))
	defer store.Close()
	b, err := ratelimit.NewBucket(store, ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)

	key := func(r *http.Request) string { return r.Header.Get("X-User") }
	h := ratelimit.Middleware(b, key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("user_1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	rec = serve("user_1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Too many requests", body["error"])

	t.Run("empty key passes through", func(t *testing.T) {
		for range 3 {
			assert.Equal(t, http.StatusOK, serve("").Code)
		}
	})
}

type failingStore struct{}

func (failingStore) Take(context.Context, string, int, ratelimit.Config) (ratelimit.Result, error) {
	return ratelimit.Result{}, ratelimit.ErrStoreUnavailable
}
func (failingStore) Reset(context.Context, string) error { return nil }

func TestMiddleware_StoreFailure(t *testing.T) {
	t.Parallel()

	b, err := ratelimit.NewBucket(failingStore{}, ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	key := func(*http.Request) string { return "k" }

	rec := httptest.NewRecorder()
	ratelimit.Middleware(b, key)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	ratelimit.Middleware(b, key, ratelimit.FailOpen())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
