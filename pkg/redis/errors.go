package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL, set REDIS_URL")
	ErrFailedToParseRedisConnString = errors.New("failed to parse REDIS_URL")
	ErrRedisNotReady                = errors.New("redis not ready after retries")
	ErrHealthcheckFailed            = errors.New("redis ping failed")
)
