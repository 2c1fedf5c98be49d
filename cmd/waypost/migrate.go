// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/waypost/waypost/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			cmd.Println("Applying migrations...")
			if err := migrateUp(url); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (destructive)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			m, err := store.NewMigrator(url)
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck // close error is secondary to the migration result
			cmd.Println("Rolling back migrations...")
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Rollback completed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			m, err := store.NewMigrator(url)
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck // close error is secondary to the status result
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("version: %d dirty: %v\n", version, dirty)
			return nil
		},
	})

	return cmd
}

// migrateUp applies all pending migrations against the database.
func migrateUp(url string) error {
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck // close error is secondary to the migration result
	return m.Up()
}

// databaseURL resolves the connection string for migration commands.
func databaseURL() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	return "", oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
}
