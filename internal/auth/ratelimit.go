// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"log/slog"
	"sync"
	"time"
)

// Rate limiting defaults.
const (
	// DefaultMaxAttempts is the failure count at which a key becomes limited.
	DefaultMaxAttempts = 5

	// DefaultWindow is the trailing window within which failures count.
	DefaultWindow = 5 * time.Minute
)

// RateLimiter is an in-memory sliding-window failure counter keyed by an
// arbitrary string (normalized email + client origin for login). Stale
// entries are evicted lazily on every access; there is no background
// sweep. State is process-local and never persisted.
//
// Each operation is atomic per key, and operations on distinct keys
// never contend on a shared lock: the map is a sync.Map and each bucket
// carries its own mutex.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	clock       Clock
	logger      *slog.Logger

	buckets sync.Map // key -> *attemptBucket
}

// attemptBucket holds the failure timestamps for one key, oldest first.
// removed marks a bucket that has been deleted from the map; a holder
// that observes it must re-load, because another goroutine may already
// have installed a fresh bucket under the same key.
type attemptBucket struct {
	mu      sync.Mutex
	times   []time.Time
	removed bool
}

// NewRateLimiter creates a RateLimiter. Non-positive maxAttempts or
// window fall back to the defaults; a nil clock means wall-clock time.
func NewRateLimiter(maxAttempts int, window time.Duration, clock Clock, logger *slog.Logger) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		clock:       clock,
		logger:      logger,
	}
}

// IsLimited reports whether the key is at or above the failure
// threshold. Entries older than the window are evicted first; a bucket
// left empty by eviction is removed from the map.
func (l *RateLimiter) IsLimited(key string) bool {
	for {
		v, ok := l.buckets.Load(key)
		if !ok {
			return false
		}
		b := v.(*attemptBucket)

		b.mu.Lock()
		if b.removed {
			b.mu.Unlock()
			continue
		}
		b.evict(l.clock.Now(), l.window)
		if len(b.times) == 0 {
			b.removed = true
			l.buckets.Delete(key)
			b.mu.Unlock()
			return false
		}
		limited := len(b.times) >= l.maxAttempts
		b.mu.Unlock()
		return limited
	}
}

// RecordFailure appends a failure at the current time and reports
// whether the key is at or above the threshold after the insert.
func (l *RateLimiter) RecordFailure(key string) bool {
	for {
		v, _ := l.buckets.LoadOrStore(key, &attemptBucket{})
		b := v.(*attemptBucket)

		b.mu.Lock()
		if b.removed {
			b.mu.Unlock()
			continue
		}
		now := l.clock.Now()
		b.evict(now, l.window)
		b.times = append(b.times, now)
		limited := len(b.times) >= l.maxAttempts
		count := len(b.times)
		b.mu.Unlock()

		if limited {
			l.logger.Info("rate limit reached",
				"key", key,
				"failures", count,
				"window", l.window)
		}
		return limited
	}
}

// Reset removes the key's bucket entirely. Called on successful
// authentication.
func (l *RateLimiter) Reset(key string) {
	v, ok := l.buckets.Load(key)
	if !ok {
		return
	}
	b := v.(*attemptBucket)

	b.mu.Lock()
	if !b.removed {
		b.removed = true
		l.buckets.Delete(key)
	}
	b.mu.Unlock()
}

// evict drops entries strictly older than now-window. Timestamps are
// appended in order, so the slice stays sorted and eviction is a prefix cut.
func (b *attemptBucket) evict(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(b.times) && b.times[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.times = append(b.times[:0], b.times[i:]...)
	}
}
