package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/events"
	"github.com/JonMunkholm/ContentImport/internal/logging"
	"github.com/JonMunkholm/ContentImport/internal/schema"
	"github.com/JonMunkholm/ContentImport/internal/store"
	"github.com/JonMunkholm/ContentImport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logCloser := logging.Setup(cfg.Logging, os.Stdout)
	defer logCloser.Close()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"events", cfg.Events.AMQPURL != "",
	)

	// Register content models
	added, err := schema.Register(cfg.Import.ModelsPath)
	if err != nil {
		slog.Error("failed to load model catalogue", "path", cfg.Import.ModelsPath, "error", err)
		os.Exit(1)
	}
	slog.Info("models registered", "count", added, "groups", len(core.Groups()))
	for _, group := range core.Groups() {
		slog.Debug("model group", "group", group, "models", len(core.ByGroup(group)))
	}

	// Connect to the store
	ctx := context.Background()
	backend, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	slog.Info("connected to store", "driver", cfg.Database.Driver)

	// Publish import events to RabbitMQ when configured; otherwise they are logged
	var opts []core.Option
	if cfg.Events.AMQPURL != "" {
		publisher, err := events.Dial(cfg.Events)
		if err != nil {
			slog.Error("failed to connect to event broker", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, core.WithPublisher(publisher))
		slog.Info("publishing events", "exchange", cfg.Events.Exchange)
	}

	service, err := core.NewService(backend, core.Config{
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		DeleteTimeout: cfg.Import.DeleteTimeout,
	}, opts...)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		for _, imp := range service.LimiterStatus().Running {
			slog.Info("waiting for import to complete", "import_id", imp.ID, "model", imp.Model, "started_at", imp.StartedAt)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		return
	}
	<-done
}
