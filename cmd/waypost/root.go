// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Waypost CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waypost",
		Short: "Waypost - authentication and session service",
		Long: `Waypost is an authentication and session service: signup, login,
session resolution and revocation over a PostgreSQL store.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default: waypost.yaml in the XDG config dir, if present)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}
