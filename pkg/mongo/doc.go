// Package mongo connects to MongoDB with retries and exposes a readiness probe.
package mongo
