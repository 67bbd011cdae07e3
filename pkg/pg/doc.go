// Package pg opens a pgx connection pool with retries, exposes a readiness
// probe and applies embedded goose migrations.
package pg
