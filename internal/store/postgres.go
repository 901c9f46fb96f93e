// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

// Package store provides the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Ping retry schedule for pool bootstrap. Covers the window where the
// database container is still coming up next to the service.
const (
	pingRetryBase = 500 * time.Millisecond
	pingRetryMax  = 6
)

// NewPool connects a pgx pool and verifies connectivity with a ping,
// retrying with exponential backoff so a database that is still starting
// does not fail the boot.
func NewPool(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("operation", "parse database url").
			Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(pingRetryMax, retry.NewExponential(pingRetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.Warn("database ping failed, retrying", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_PING_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	logger.Info("database pool ready",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database)
	return pool, nil
}
