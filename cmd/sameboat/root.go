// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sameboatplatform/sameboat/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the --config value, falling back to the XDG
// config file when present.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.ConfigFile()
}

// NewRootCmd creates the root command for the SameBoat CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sameboat",
		Short: "SameBoat - session-based authentication service",
		Long: `SameBoat is the authentication and account service for the SameBoat
platform: cookie sessions, login rate limiting and account profiles,
backed by PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPruneCmd())

	return cmd
}
