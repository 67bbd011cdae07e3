// Package redis connects to Redis with retries and exposes a readiness probe.
// The user metadata store and the per-user locker build on the returned client.
package redis
