package wanikani

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	t.Run("UnderLimitNoDelay", func(t *testing.T) {
		limiter := NewLimiter(5, time.Second)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Acquire(ctx); err != nil {
				t.Fatalf("acquire %d failed: %v", i, err)
			}
		}

		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("acquires under the limit should not block, took %v", elapsed)
		}

		if limiter.Pending() != 5 {
			t.Errorf("expected 5 pending stamps, got %d", limiter.Pending())
		}
	})

	t.Run("OverLimitWaitsForWindow", func(t *testing.T) {
		window := 200 * time.Millisecond
		limiter := NewLimiter(2, window)
		ctx := context.Background()

		limiter.Acquire(ctx)
		limiter.Acquire(ctx)

		start := time.Now()
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("third acquire failed: %v", err)
		}

		if elapsed := time.Since(start); elapsed < window/2 {
			t.Errorf("third acquire should wait for the oldest stamp to age out, only waited %v", elapsed)
		}
	})

	t.Run("WindowSlides", func(t *testing.T) {
		window := 100 * time.Millisecond
		limiter := NewLimiter(2, window)
		ctx := context.Background()

		limiter.Acquire(ctx)
		limiter.Acquire(ctx)

		time.Sleep(window + 20*time.Millisecond)

		if limiter.Pending() != 0 {
			t.Errorf("stamps should age out of the window, %d remain", limiter.Pending())
		}

		start := time.Now()
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("acquire after window failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("acquire after window should not block, took %v", elapsed)
		}
	})

	t.Run("CancelledWhileWaiting", func(t *testing.T) {
		limiter := NewLimiter(1, time.Hour)
		limiter.Acquire(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Acquire(ctx)
		if err != context.DeadlineExceeded {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		limiter := NewLimiter(0, 0)
		if limiter.limit != DefaultRateLimit {
			t.Errorf("expected default limit %d, got %d", DefaultRateLimit, limiter.limit)
		}
		if limiter.window != DefaultRateWindow {
			t.Errorf("expected default window %v, got %v", DefaultRateWindow, limiter.window)
		}
	})
}
