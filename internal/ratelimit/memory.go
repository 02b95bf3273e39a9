package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	sweepInterval = 30 * time.Second
	idleEviction  = 5 * time.Minute
)

// entry tracks the token balance for a single key.
type entry struct {
	tokens float64
	seen   time.Time
}

// MemoryLimiter is a per-key token bucket held entirely in process memory.
//
// Tokens refill continuously at the configured rate up to the burst
// capacity. A janitor goroutine sweeps keys idle longer than five minutes
// so the map stays bounded under churning client populations.
type MemoryLimiter struct {
	rate  float64
	burst float64

	mu      sync.Mutex
	entries map[string]*entry

	closeOnce sync.Once
	stop      chan struct{}
}

// NewMemoryLimiter returns a limiter allowing roughly rate requests per
// second per key, with bursts up to burst. Call Close when done to stop
// the janitor.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	l := &MemoryLimiter{
		rate:    rate,
		burst:   float64(burst),
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow consumes a token for key, reporting whether one was available.
// Unknown keys begin with a full bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &entry{tokens: l.burst - 1, seen: now}
		return true, nil
	}

	e.tokens = min(l.burst, e.tokens+now.Sub(e.seen).Seconds()*l.rate)
	e.seen = now
	if e.tokens < 1 {
		return false, nil
	}
	e.tokens--
	return true, nil
}

// Close stops the janitor goroutine. Idempotent.
func (l *MemoryLimiter) Close() error {
	l.closeOnce.Do(func() { close(l.stop) })
	return nil
}

func (l *MemoryLimiter) janitor() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.sweep(time.Now().Add(-idleEviction))
		}
	}
}

func (l *MemoryLimiter) sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.seen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
