package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript mirrors refill() so both stores agree. Times are milliseconds.
var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

if now > ts then
  local intervals = math.floor((now - ts) / interval)
  if intervals > math.floor(capacity / rate) + 1 then
    tokens = capacity
    ts = now
  elseif intervals > 0 then
    tokens = math.min(capacity, tokens + intervals * rate)
    ts = ts + intervals * interval
  end
end

local allowed = 0
if tokens >= n then
  tokens = tokens - n
  allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], math.ceil(capacity / rate) * interval + interval)
return {allowed, tokens, ts}
`)

// RedisStore shares buckets across replicas.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "ratelimit:", now: time.Now}
}

func (s *RedisStore) Take(ctx context.Context, key string, n int, cfg Config) (Result, error) {
	now := s.now()
	vals, err := takeScript.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity, cfg.RefillRate, cfg.RefillInterval.Milliseconds(), now.UnixMilli(), n,
	).Int64Slice()
	if err != nil {
		return Result{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 3 {
		return Result{}, errors.Join(ErrStoreUnavailable, errors.New("unexpected script reply"))
	}
	return Result{
		Limit:     cfg.Capacity,
		Remaining: int(vals[1]),
		ResetAt:   time.UnixMilli(vals[2]).Add(cfg.RefillInterval),
		Allowed:   vals[0] == 1,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
