// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/waypost/waypost/internal/auth/postgres"
	"github.com/waypost/waypost/internal/store"
)

// NewSweepCmd creates the sweep subcommand. Expired sessions are
// normally removed lazily when next looked up; this one-shot sweep is
// for operators who want the table trimmed eagerly.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete all expired sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, url)
			if err != nil {
				return err
			}
			defer pool.Close()

			deleted, err := postgres.NewSessionRepository(pool).DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("deleted %d expired sessions\n", deleted)
			return nil
		},
	}
}
