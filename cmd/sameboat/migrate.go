// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sameboatplatform/sameboat/internal/config"
	"github.com/sameboatplatform/sameboat/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (destructive)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current migration version and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					cmd.Println("version: none")
				} else {
					name, err := store.MigrationName(version)
					if err != nil {
						return err
					}
					cmd.Printf("version: %d (%s)\n", version, name)
				}
				if dirty {
					cmd.Println("state: DIRTY - manual intervention required")
				}

				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("pending: none")
					return nil
				}
				for _, v := range pending {
					name, err := store.MigrationName(v)
					if err != nil {
						return err
					}
					cmd.Printf("pending: %d (%s)\n", v, name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the migration version without running migrations (recovery only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").Errorf("version must be an integer, got %q", args[0])
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("version forced to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator resolves the database URL, runs fn against a fresh
// migrator and closes it.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (flag --database-url or SAMEBOAT_DATABASE_URL)")
	}

	migrator, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}

	if err := fn(migrator); err != nil {
		_ = migrator.Close() //nolint:errcheck // operation error takes precedence
		return err
	}
	return migrator.Close()
}
