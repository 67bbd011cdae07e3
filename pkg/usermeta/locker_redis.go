package usermeta

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// renewScript extends the lock TTL only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker is a single-instance Redis lock (SET NX PX). While held, the
// lock is renewed every renew interval so work longer than the TTL keeps
// it; the TTL only caps how long a crashed holder can block others.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	renew  time.Duration
	log    *slog.Logger
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*RedisLocker)

func WithLockTTL(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

func WithLockRetry(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockRenewInterval sets how often a held lock is extended. Defaults to
// a third of the TTL.
func WithLockRenewInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.renew = d
		}
	}
}

func WithLockLogger(log *slog.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		if log != nil {
			l.log = log
		}
	}
}

func NewRedisLocker(client redis.UniversalClient, prefix string, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    30 * time.Second,
		retry:  50 * time.Millisecond,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.renew <= 0 || l.renew >= l.ttl {
		l.renew = max(l.ttl/3, time.Millisecond)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + "lock:" + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Join(ErrLockFailed, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockFailed, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(context.WithoutCancel(ctx), k, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{k}, token).Err(); err != nil {
				l.log.ErrorContext(rctx, "failed to release redis lock",
					slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}

// keepAlive extends the lock until stop is closed or the lock is lost.
func (l *RedisLocker) keepAlive(ctx context.Context, k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.renew)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		rctx, cancel := context.WithTimeout(ctx, l.renew)
		n, err := renewScript.Run(rctx, l.client, []string{k}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case err != nil:
			l.log.WarnContext(ctx, "failed to renew redis lock",
				slog.String("key", k), slog.Any("error", err))
		case n == 0:
			l.log.ErrorContext(ctx, "redis lock lost before release",
				slog.String("key", k))
			return
		}
	}
}
