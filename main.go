package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/courierhub/internal/docmap"
	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/internal/engine"
	"github.com/tournevent/courierhub/internal/server"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/internal/webhook"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "courierhub",
	Short:   "Courier Hub - multi-provider last-mile delivery orchestration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	// Initialize courier registry with all providers
	registry := initCourierRegistry(cfg, logger, tracer)

	st, err := initStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	defer st.Close()

	publisher := initPublisher(cfg, logger)
	defer publisher.Close()

	metrics := telemetry.NewMetrics()

	mappings := docmap.NewRegistry()
	mappings.Register(docmap.TransportJobMapping())

	eng := engine.New(
		engine.Config{DefaultProvider: cfg.DefaultProvider},
		registry,
		mappings,
		st,
		document.NewMemoryStore(),
		publisher,
		metrics,
		logger,
	)
	dispatcher := webhook.NewDispatcher(registry, eng, cfg.WebhookSecrets(), metrics, logger)

	logger.Info("Starting Courier Hub",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("default_provider", cfg.DefaultProvider),
	)

	// Start HTTP server
	srv := server.New(server.Config{Port: cfg.Port}, eng, dispatcher, metrics, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
