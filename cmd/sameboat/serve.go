// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sameboatplatform/sameboat/internal/auth"
	authpg "github.com/sameboatplatform/sameboat/internal/auth/postgres"
	"github.com/sameboatplatform/sameboat/internal/config"
	"github.com/sameboatplatform/sameboat/internal/httpapi"
	"github.com/sameboatplatform/sameboat/internal/logging"
	"github.com/sameboatplatform/sameboat/internal/observability"
	"github.com/sameboatplatform/sameboat/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth service",
		Long: `Start the HTTP auth service: registration, login, logout and profile
endpoints, the session pruner and the observability server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, autoMigrate)
		},
	}

	cmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations before serving")

	return cmd
}

func runServe(cmd *cobra.Command, autoMigrate bool) error {
	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (flag --database-url or SAMEBOAT_DATABASE_URL)")
	}

	logging.SetDefault("sameboat", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	logger := slog.Default()

	logger.Info("starting auth service",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if autoMigrate {
		migrator, err := store.NewMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close() //nolint:errcheck // migration error takes precedence
			return err
		}
		if err := migrator.Close(); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := store.NewPool(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	clock := auth.SystemClock{}

	sessionService, err := auth.NewSessionService(authpg.NewSessionRepository(pool), clock, logger)
	if err != nil {
		return err
	}

	limiter := auth.NewRateLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window, clock, logger)

	policy := auth.PasswordPolicy{
		MinLength:        cfg.Auth.Password.MinLength,
		MaxLength:        cfg.Auth.Password.MaxLength,
		RequireUpper:     cfg.Auth.Password.RequireUpper,
		RequireLower:     cfg.Auth.Password.RequireLower,
		RequireDigit:     cfg.Auth.Password.RequireDigit,
		ForbidWhitespace: cfg.Auth.Password.ForbidWhitespace,
	}

	authService, err := auth.NewService(
		authpg.NewUserRepository(pool),
		sessionService,
		auth.NewArgon2idHasher(),
		limiter,
		clock,
		auth.Config{
			SessionTTL:     cfg.Session.TTL,
			DevAutoCreate:  cfg.Auth.DevAutoCreate,
			StubPassword:   cfg.Auth.StubPassword,
			PasswordPolicy: policy,
		},
		logger,
	)
	if err != nil {
		return err
	}

	// Observability server first so the pruner and handlers can record.
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	onPrune := func(deleted int64) {
		if metrics != nil && deleted > 0 {
			metrics.SessionsPruned.Add(float64(deleted))
		}
	}
	pruner, err := auth.NewPruner(sessionService, clock,
		cfg.Session.PruneInterval, cfg.Session.PruneInitialDelay, logger, onPrune)
	if err != nil {
		return err
	}
	if err := pruner.Start(ctx); err != nil {
		return err
	}
	defer pruner.Stop()

	apiServer, err := httpapi.NewServer(httpapi.Config{
		Addr: cfg.HTTP.Addr,
		Cookies: httpapi.CookieConfig{
			Secure:           cfg.Cookie.Secure,
			Domain:           cfg.Cookie.Domain,
			ValidApexDomains: cfg.Cookie.ValidApexDomains,
		},
		SessionTTL:     cfg.Session.TTL,
		PasswordPolicy: policy,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, authService, metrics, logger)
	if err != nil {
		return err
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "http")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("observability server shutdown failed", "error", err)
		}
	}

	logger.Info("auth service stopped")
	return nil
}

// monitorServerErrors cancels the run context when a background server
// reports a fatal error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
