// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sameboatplatform/sameboat/internal/auth"
	authpg "github.com/sameboatplatform/sameboat/internal/auth/postgres"
	"github.com/sameboatplatform/sameboat/internal/config"
	"github.com/sameboatplatform/sameboat/internal/store"
)

// NewPruneCmd creates the prune subcommand: a one-shot expired session
// sweep, for cron-style deployments that don't run the background pruner.
func NewPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Long:  `Delete all sessions whose expiry has passed and report the count.`,
		RunE:  runPrune,
	}

	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (flag --database-url or SAMEBOAT_DATABASE_URL)")
	}

	ctx := cmd.Context()
	logger := slog.Default()

	pool, err := store.NewPool(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions, err := auth.NewSessionService(authpg.NewSessionRepository(pool), auth.SystemClock{}, logger)
	if err != nil {
		return err
	}

	pruner, err := auth.NewPruner(sessions, auth.SystemClock{},
		auth.DefaultPruneInterval, auth.DefaultPruneInitialDelay, logger, nil)
	if err != nil {
		return err
	}

	deleted, err := pruner.RunOnce(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("pruned %d expired session(s)\n", deleted)
	return nil
}
