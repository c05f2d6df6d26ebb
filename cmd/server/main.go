package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/treason-stats/internal/api"
	"github.com/mcoot/treason-stats/internal/config"
	"github.com/mcoot/treason-stats/internal/factory"
)

func main() {
	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	env, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	level, _ := env.Level()
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(factory.FromEnv(env, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Provision storage in the background; requests wait on the same gate
	go func() {
		_ = app.Gate.Wait(context.Background())
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Gate:            app.Gate,
		StorageType:     app.StorageType,
		IdentityService: app.IdentityService,
		RecorderService: app.RecorderService,
		RankingService:  app.RankingService,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = env.HTTPHost
	serverConfig.Port = env.HTTPPort
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", app.StorageType),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Let pending name updates land before the store closes
	drainCtx, cancel := context.WithTimeout(context.Background(), env.RenameTimeout)
	defer cancel()
	if err := app.IdentityService.Drain(drainCtx); err != nil {
		logger.Warn("gave up waiting for name updates", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
