// Package mongo connects a MongoDB client with retries and exposes a
// readiness probe.
package mongo
