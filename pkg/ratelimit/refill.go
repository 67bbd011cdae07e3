package ratelimit

import "time"

// refill adds the tokens earned since last. The refill clock only advances
// by whole intervals so partial progress is kept.
func refill(tokens int, last, now time.Time, cfg Config) (int, time.Time) {
	if now.Before(last) {
		return tokens, last
	}
	intervals := int64(now.Sub(last) / cfg.RefillInterval)
	if intervals <= 0 {
		return tokens, last
	}
	// Cap to avoid overflow on long idle buckets.
	if limit := int64(cfg.Capacity/cfg.RefillRate + 1); intervals > limit {
		return cfg.Capacity, now
	}
	tokens = min(tokens+int(intervals)*cfg.RefillRate, cfg.Capacity)
	return tokens, last.Add(time.Duration(intervals) * cfg.RefillInterval)
}
