package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_ThroughputBound(t *testing.T) {
	if testing.Short() {
		t.Skip("S3 throughput scenario takes >10s wall clock")
	}

	l := New(8, 12)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	elapsed := time.Since(start)

	// S3: 100 acquires against max_rate=8, burst=12 must take at least
	// (100-12)/8 = 11.0s.
	require.GreaterOrEqual(t, elapsed.Seconds(), 11.0)
}

func TestLimiter_ContextCancellation(t *testing.T) {
	l := New(1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Acquire(ctx))
	cancel()

	err := l.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSemaphore_BoundsConcurrency(t *testing.T) {
	sem := NewSemaphore(3)
	ctx := context.Background()

	var mu sync.Mutex
	current, peak := 0, 0
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, sem.Acquire(ctx))
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			sem.Release()
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak, 3)
}
