// ABOUTME: This file implements spend control for the external judgment oracle
// ABOUTME: A sliding window call quota plus a bounded concurrency slot pool
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// WindowLimiter enforces a maximum number of calls per fixed time window.
// Callers block in Wait until a call slot in the current window is available.
type WindowLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxCalls    int
	windowStart time.Time
	calls       int
	logger      *slog.Logger
	now         func() time.Time
}

func NewWindowLimiter(window time.Duration, maxCalls int, logger *slog.Logger) *WindowLimiter {
	return &WindowLimiter{
		window:   window,
		maxCalls: maxCalls,
		logger:   logger,
		now:      time.Now,
	}
}

// Wait blocks until the current window has quota for one more call, then
// consumes it. Returns early if the context is cancelled.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}

		l.logger.InfoContext(ctx, "rate limit window exhausted, waiting",
			"wait_duration", wait,
			"max_calls", l.maxCalls)

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// tryAcquire consumes one call from the current window if quota remains.
// When the window is exhausted it returns the time until the window resets.
func (l *WindowLimiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.calls = 0
	}

	if l.calls < l.maxCalls {
		l.calls++
		return 0, true
	}

	return l.windowStart.Add(l.window).Sub(now), false
}

// Remaining reports how many calls are left in the current window.
func (l *WindowLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windowStart.IsZero() || l.now().Sub(l.windowStart) >= l.window {
		return l.maxCalls
	}
	return l.maxCalls - l.calls
}

// SlotPool bounds how many oracle requests may be in flight at once.
type SlotPool struct {
	sem *semaphore.Weighted
}

func NewSlotPool(size int64) *SlotPool {
	return &SlotPool{sem: semaphore.NewWeighted(size)}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (p *SlotPool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire request slot: %w", err)
	}
	return nil
}

func (p *SlotPool) Release() {
	p.sem.Release(1)
}
