package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBurst(t *testing.T) {
	m := NewMemoryLimiter(10, 3) // 10 rps, burst 3
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be within burst", i)
	}

	ok, err := m.Allow(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "request beyond burst should be denied")
}

func TestMemoryLimiterRefill(t *testing.T) {
	// 1000 rps means one token per millisecond. After exhausting burst 2,
	// a few milliseconds of waiting must refill at least one token.
	m := NewMemoryLimiter(1000, 2)
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = m.Allow(ctx, "k1")
	}
	ok, _ := m.Allow(ctx, "k1")
	require.False(t, ok)

	time.Sleep(5 * time.Millisecond)

	ok, err := m.Allow(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiterIndependentKeys(t *testing.T) {
	m := NewMemoryLimiter(10, 1)
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	ok, _ := m.Allow(ctx, "a")
	require.True(t, ok)
	ok, _ = m.Allow(ctx, "a")
	require.False(t, ok)

	ok, _ = m.Allow(ctx, "b")
	assert.True(t, ok, "key b must not be affected by key a")
}

func TestMemoryLimiterConcurrent(t *testing.T) {
	m := NewMemoryLimiter(100, 50)
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	var wg sync.WaitGroup
	allowed := make([]int, 10)

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if ok, _ := m.Allow(ctx, "shared"); ok {
					allowed[idx]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, c := range allowed {
		total += c
	}
	assert.GreaterOrEqual(t, total, 1)
	assert.LessOrEqual(t, total, 50, "burst caps total allowed requests")
}

func TestMemoryLimiterEvictStale(t *testing.T) {
	m := NewMemoryLimiter(10, 5)
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	_, _ = m.Allow(ctx, "stale")
	_, _ = m.Allow(ctx, "recent")

	m.mu.Lock()
	m.entries["stale"].seen = time.Now().Add(-15 * time.Minute)
	m.mu.Unlock()

	m.sweep(time.Now().Add(-idleEviction))

	m.mu.Lock()
	_, staleExists := m.entries["stale"]
	_, recentExists := m.entries["recent"]
	m.mu.Unlock()

	assert.False(t, staleExists)
	assert.True(t, recentExists)
}

func TestMemoryLimiterCloseIdempotent(t *testing.T) {
	m := NewMemoryLimiter(10, 5)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	var l NoopLimiter
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(ctx, "anything")
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, l.Close())
}
