// Package ratelimit throttles requests per caller key.
//
// A single-instance deployment uses the in-memory MemoryLimiter. Running
// several replicas behind a balancer needs a shared store instead; the
// Limiter interface is the seam for swapping one in.
package ratelimit

import "context"

// Limiter decides whether the request identified by key may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow takes one slot for key. Keys are opaque to the limiter;
	// callers build them ("ip:1.2.3.4", "user:<uuid>"). An error means
	// the limiter itself failed, and callers fail open on it.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases goroutines or connections held by the limiter.
	Close() error
}

// NoopLimiter admits everything. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
