// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Pruner default schedule.
const (
	DefaultPruneInterval     = time.Hour
	DefaultPruneInitialDelay = 2 * time.Minute
)

// Pruner periodically deletes expired sessions. It is a cleanliness
// optimization, not a correctness dependency: expiry is re-checked at
// read time, so a missed run (restart, crash) is tolerated.
type Pruner struct {
	sessions     *SessionService
	clock        Clock
	interval     time.Duration
	initialDelay time.Duration
	logger       *slog.Logger
	onPrune      func(deleted int64)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewPruner creates a Pruner. onPrune, when non-nil, is invoked after
// each sweep with the number of deleted sessions (metrics hook).
func NewPruner(sessions *SessionService, clock Clock, interval, initialDelay time.Duration, logger *slog.Logger, onPrune func(int64)) (*Pruner, error) {
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if initialDelay < 0 {
		initialDelay = DefaultPruneInitialDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		sessions:     sessions,
		clock:        clock,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logger,
		onPrune:      onPrune,
	}, nil
}

// Start launches the background sweep goroutine. Calling Start on a
// running pruner is an error.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return oops.Errorf("pruner already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(runCtx)

	p.logger.Info("session pruner started",
		"interval", p.interval,
		"initial_delay", p.initialDelay)
	return nil
}

// Stop cancels the sweep goroutine and waits for it to exit.
func (p *Pruner) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Info("session pruner stopped")
}

// RunOnce performs a single sweep at the current clock reading.
// Exposed for the CLI and for tests.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := p.sessions.PruneExpired(ctx, p.clock.Now())
	if err != nil {
		return 0, err
	}
	if p.onPrune != nil {
		p.onPrune(deleted)
	}
	return deleted, nil
}

func (p *Pruner) run(ctx context.Context) {
	defer close(p.done)

	delay := time.NewTimer(p.initialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep is fire-and-forget: failures are logged, never propagated.
func (p *Pruner) sweep(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("session prune sweep failed", "error", err)
	}
}
