// ABOUTME: This file tests the window quota limiter and the concurrency slot pool
// ABOUTME: Uses an injected clock to make window rollover deterministic
package ratelimit

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestWindowLimiter_Wait(t *testing.T) {
	t.Run("calls within quota pass immediately", func(t *testing.T) {
		limiter := NewWindowLimiter(time.Minute, 3, testLogger())

		for i := 0; i < 3; i++ {
			err := limiter.Wait(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, 0, limiter.Remaining())
	})

	t.Run("exhausted window blocks until cancellation", func(t *testing.T) {
		limiter := NewWindowLimiter(time.Minute, 1, testLogger())
		require.NoError(t, limiter.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := limiter.Wait(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("quota resets when the window rolls over", func(t *testing.T) {
		limiter := NewWindowLimiter(time.Minute, 2, testLogger())

		current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return current }

		require.NoError(t, limiter.Wait(context.Background()))
		require.NoError(t, limiter.Wait(context.Background()))
		assert.Equal(t, 0, limiter.Remaining())

		current = current.Add(61 * time.Second)
		assert.Equal(t, 2, limiter.Remaining())
		require.NoError(t, limiter.Wait(context.Background()))
	})
}

func TestSlotPool(t *testing.T) {
	t.Run("bounds in-flight concurrency", func(t *testing.T) {
		pool := NewSlotPool(2)

		require.NoError(t, pool.Acquire(context.Background()))
		require.NoError(t, pool.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := pool.Acquire(ctx)
		require.Error(t, err)

		pool.Release()
		require.NoError(t, pool.Acquire(context.Background()))
	})

	t.Run("released slots are reusable across goroutines", func(t *testing.T) {
		pool := NewSlotPool(1)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, pool.Acquire(context.Background()))
				pool.Release()
			}()
		}
		wg.Wait()
	})
}
