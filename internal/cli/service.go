package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v6"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/events"
	"github.com/JonMunkholm/ContentImport/internal/logging"
	"github.com/JonMunkholm/ContentImport/internal/schema"
	"github.com/JonMunkholm/ContentImport/internal/store"
)

// cliActor is recorded in the audit log for changes made from the CLI.
const cliActor = "cli"

// loadModels registers the model catalogue named by MODELS_PATH without
// requiring the rest of the configuration.
func loadModels() error {
	var importCfg config.ImportConfig
	if err := env.Parse(&importCfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if _, err := schema.Register(importCfg.ModelsPath); err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	return nil
}

// openService loads configuration and connects the service to its store.
// The returned function releases everything openService acquired.
func openService(ctx context.Context) (*core.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCloser := logging.Setup(cfg.Logging, os.Stderr)

	if _, err := schema.Register(cfg.Import.ModelsPath); err != nil {
		logCloser.Close()
		return nil, nil, fmt.Errorf("load models: %w", err)
	}

	backend, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}

	var opts []core.Option
	var publisher *events.AMQPPublisher
	if cfg.Events.AMQPURL != "" {
		publisher, err = events.Dial(cfg.Events)
		if err != nil {
			backend.Close()
			logCloser.Close()
			return nil, nil, err
		}
		opts = append(opts, core.WithPublisher(publisher))
	}

	svc, err := core.NewService(backend, core.Config{
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		DeleteTimeout: cfg.Import.DeleteTimeout,
	}, opts...)
	if err != nil {
		backend.Close()
		logCloser.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				slog.Warn("failed to close event publisher", "error", err)
			}
		}
		backend.Close()
		logCloser.Close()
	}
	return svc, cleanup, nil
}

// withActor tags ctx so audit entries name the CLI.
func withActor(ctx context.Context) context.Context {
	return core.ContextWithActor(ctx, cliActor)
}
