// Package redis connects a go-redis client with retries and exposes a
// readiness probe.
package redis
