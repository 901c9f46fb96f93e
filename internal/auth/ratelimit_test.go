// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sameboatplatform/sameboat/internal/auth"
)

func TestRateLimiter_Threshold(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	limiter := auth.NewRateLimiter(5, 5*time.Minute, clock, nil)

	t.Run("unknown key is not limited", func(t *testing.T) {
		assert.False(t, limiter.IsLimited("nobody@example.com|1.2.3.4"))
	})

	t.Run("below threshold is not limited", func(t *testing.T) {
		key := "below@example.com|1.2.3.4"
		for i := 0; i < 4; i++ {
			assert.False(t, limiter.RecordFailure(key), "failure %d should not cross threshold", i+1)
		}
		assert.False(t, limiter.IsLimited(key))
	})

	t.Run("exactly maxAttempts failures limits the key", func(t *testing.T) {
		key := "limited@example.com|1.2.3.4"
		for i := 0; i < 4; i++ {
			limiter.RecordFailure(key)
		}
		assert.True(t, limiter.RecordFailure(key), "fifth failure crosses the threshold")
		assert.True(t, limiter.IsLimited(key))
	})

	t.Run("keys are independent", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			limiter.RecordFailure("one@example.com|1.2.3.4")
		}
		assert.True(t, limiter.IsLimited("one@example.com|1.2.3.4"))
		assert.False(t, limiter.IsLimited("one@example.com|5.6.7.8"), "different origin, different key")
		assert.False(t, limiter.IsLimited("two@example.com|1.2.3.4"))
	})
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Run("stale failures are evicted", func(t *testing.T) {
		clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		limiter := auth.NewRateLimiter(5, 5*time.Minute, clock, nil)
		key := "stale@example.com|1.2.3.4"

		for i := 0; i < 5; i++ {
			limiter.RecordFailure(key)
		}
		assert.True(t, limiter.IsLimited(key))

		clock.Advance(5*time.Minute + time.Second)
		assert.False(t, limiter.IsLimited(key), "all failures aged out of the window")
	})

	t.Run("partial eviction keeps recent failures", func(t *testing.T) {
		clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		limiter := auth.NewRateLimiter(5, 5*time.Minute, clock, nil)
		key := "partial@example.com|1.2.3.4"

		limiter.RecordFailure(key)
		limiter.RecordFailure(key)
		clock.Advance(4 * time.Minute)
		limiter.RecordFailure(key)
		limiter.RecordFailure(key)

		// First two fall out; the recent two stay.
		clock.Advance(90 * time.Second)
		assert.False(t, limiter.IsLimited(key))

		limiter.RecordFailure(key)
		limiter.RecordFailure(key)
		assert.False(t, limiter.IsLimited(key), "4 failures in window")
		assert.True(t, limiter.RecordFailure(key), "5th in-window failure limits")
	})

	t.Run("failure at exact window edge still counts", func(t *testing.T) {
		clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		limiter := auth.NewRateLimiter(1, 5*time.Minute, clock, nil)
		key := "edge@example.com|1.2.3.4"

		limiter.RecordFailure(key)
		clock.Advance(5 * time.Minute)
		// Entry is exactly window old: not strictly before the cutoff.
		assert.True(t, limiter.IsLimited(key))
	})
}

func TestRateLimiter_Reset(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	limiter := auth.NewRateLimiter(5, 5*time.Minute, clock, nil)
	key := "reset@example.com|1.2.3.4"

	for i := 0; i < 5; i++ {
		limiter.RecordFailure(key)
	}
	assert.True(t, limiter.IsLimited(key))

	limiter.Reset(key)
	assert.False(t, limiter.IsLimited(key), "reset key is immediately unlimited")

	// Resetting an absent key is a no-op.
	limiter.Reset("absent@example.com|1.2.3.4")
	assert.False(t, limiter.IsLimited("absent@example.com|1.2.3.4"))
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := auth.NewRateLimiter(0, 0, nil, nil)
	key := "defaults@example.com|1.2.3.4"

	for i := 0; i < auth.DefaultMaxAttempts-1; i++ {
		assert.False(t, limiter.RecordFailure(key))
	}
	assert.True(t, limiter.RecordFailure(key))
}

func TestRateLimiter_Concurrency(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	limiter := auth.NewRateLimiter(1000, 5*time.Minute, clock, nil)

	var wg sync.WaitGroup
	keys := []string{"a|1", "b|1", "c|1"}
	for _, key := range keys {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(k string) {
				defer wg.Done()
				limiter.RecordFailure(k)
				limiter.IsLimited(k)
			}(key)
		}
	}
	wg.Wait()

	for _, key := range keys {
		assert.False(t, limiter.IsLimited(key), "50 failures below 1000 threshold for %s", key)
	}
}
