// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillup/skillup/internal/auth"
	authpg "github.com/skillup/skillup/internal/auth/postgres"
	"github.com/skillup/skillup/internal/config"
	"github.com/skillup/skillup/internal/httpapi"
	"github.com/skillup/skillup/internal/logging"
	"github.com/skillup/skillup/internal/observability"
	"github.com/skillup/skillup/internal/progress"
	progresspg "github.com/skillup/skillup/internal/progress/postgres"
	"github.com/skillup/skillup/internal/store"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Skill-Up API server",
		Long: `Start the HTTP API server which handles registration, login,
session validation, task completion and the leaderboard.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	// Register flags; config file and DATABASE_URL provide the same keys.
	cmd.Flags().String("listen_addr", config.DefaultListenAddr, "HTTP API listen address")
	cmd.Flags().String("metrics_addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database_url", "", "PostgreSQL connection string")
	cmd.Flags().String("log_format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log_level", config.DefaultLogLevel, "minimum log level (debug, info, warn, error)")
	cmd.Flags().Duration("session_ttl", config.DefaultSessionTTL, "bearer session lifetime")
	cmd.Flags().Int("leaderboard_size", config.DefaultLeaderboardSize, "leaderboard entries kept")
	cmd.Flags().Bool("registration_open", true, "allow new registrations")

	return cmd
}

// runServe starts the API server process.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault("skillup", version, cfg.LogFormat, cfg.LogLevel)
	logger := slog.Default()

	slog.Info("starting skillup server",
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
		"session_ttl", cfg.SessionTTL.String(),
		"log_format", cfg.LogFormat,
		"log_level", cfg.LogLevel,
	)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	slog.Info("database connected")

	// Wire repositories and services
	userRepo := authpg.NewUserRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)
	progressRepo := progresspg.NewProgressRepository(pool)
	boardRepo := progresspg.NewLeaderboardRepository(pool)

	authSvc, err := auth.NewAuthServiceWithLogger(userRepo, sessionRepo, auth.NewScryptHasher(), logger)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	authSvc.SetSessionTTL(cfg.SessionTTL)

	progressSvc, err := progress.NewServiceWithLogger(progressRepo, boardRepo, logger)
	if err != nil {
		return fmt.Errorf("failed to create progress service: %w", err)
	}
	progressSvc.SetLeaderboardSize(cfg.LeaderboardSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		if _, err = obsServer.Start(); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	handler, err := httpapi.NewHandler(authSvc, progressSvc, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create api handler: %w", err)
	}
	handler.SetRegistrationOpen(cfg.RegistrationOpen)

	apiServer, err := httpapi.NewServer(cfg.ListenAddr, handler.Routes(), logger)
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to start api server: %w", err)
	}

	// Periodic sweep of expired sessions; validation also rejects expired
	// rows lazily, the sweep just keeps the table small.
	go sweepExpiredSessions(ctx, sessionRepo, logger)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cmd.Println("Skill-Up server started")
	slog.Info("skillup server ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case serveErr := <-apiErrChan:
		if serveErr != nil {
			slog.Error("api server failed", "error", serveErr)
		}
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer)

	slog.Info("shutdown complete")
	return nil
}

func stopObservability(obsServer *observability.Server) {
	if obsServer == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// sweepExpiredSessions deletes expired session rows hourly until ctx ends.
func sweepExpiredSessions(ctx context.Context, sessions auth.SessionRepository, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions removed", "count", n)
			}
		}
	}
}
