// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/waypost/waypost/internal/auth"
	"github.com/waypost/waypost/internal/auth/postgres"
	"github.com/waypost/waypost/internal/config"
	"github.com/waypost/waypost/internal/httpapi"
	"github.com/waypost/waypost/internal/logging"
	"github.com/waypost/waypost/internal/observability"
	"github.com/waypost/waypost/internal/store"
	"github.com/waypost/waypost/internal/token"
	"github.com/waypost/waypost/internal/xdg"
	"github.com/waypost/waypost/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Waypost API server",
		Long: `Start the HTTP API server along with the metrics/health endpoint.
Configuration comes from the config file, flags, and environment
(DATABASE_URL, WAYPOST_TOKEN_SECRET).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, autoMigrate)
		},
	}

	// Flag names match config keys so posflag can overlay them.
	cmd.Flags().String("environment", config.EnvDevelopment, "runtime environment (development or production)")
	cmd.Flags().String("listen_addr", config.DefaultListenAddr, "API listen address")
	cmd.Flags().String("metrics_addr", config.DefaultMetricsAddr, "metrics/health HTTP address")
	cmd.Flags().String("log_format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("database_url", "", "PostgreSQL connection string (default: DATABASE_URL env)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending schema migrations on startup")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, autoMigrate bool) error {
	path := configFile
	if path == "" {
		path = xdg.DefaultConfigFile()
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("waypost", version, cfg.LogFormat)
	logger := slog.Default()

	secret := cfg.Auth.TokenSecret
	if secret == "" {
		// Config validation already rejected this in production. An
		// ephemeral secret means every restart invalidates all tokens,
		// which is exactly the property we want for an un-configured
		// development instance.
		secret, err = generateEphemeralSecret()
		if err != nil {
			return err
		}
		logger.Warn("auth.token_secret is not set; using an ephemeral development secret",
			"environment", cfg.Environment,
			"consequence", "all session tokens become invalid on restart")
	}

	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url (or DATABASE_URL) is required")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if autoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("schema migrations applied")
	}

	codec, err := token.NewHS256Codec([]byte(secret), cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	obs := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}

	svc, err := auth.NewService(
		postgres.NewUserRepository(pool),
		postgres.NewSessionRepository(pool),
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		codec,
		auth.WithLogger(logger),
		auth.WithRecorder(obs.Metrics()),
		auth.WithSessionTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		return err
	}

	apiSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewHandler(svc, logger, obs.Metrics()).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	apiErrCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", cfg.ListenAddr, "environment", cfg.Environment)
		if serveErr := apiSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-apiErrCh:
		errutil.LogError(logger, "API server failed", serveErr)
		err = serveErr
	case obsErr := <-obsErrCh:
		errutil.LogError(logger, "observability server failed", obsErr)
		err = obsErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := apiSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		errutil.LogError(logger, "API server shutdown failed", shutdownErr)
	}
	if stopErr := obs.Stop(shutdownCtx); stopErr != nil {
		errutil.LogError(logger, "observability server shutdown failed", stopErr)
	}

	logger.Info("server stopped")
	return err
}

// generateEphemeralSecret produces a random development-only signing
// secret.
func generateEphemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SECRET_GENERATE_FAILED").Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}
