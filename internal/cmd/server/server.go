// Package server parses CMS server flags and launches the admin API.
package server

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	entrypoint "github.com/louisbranch/folio/internal/platform/cmd"
	"github.com/louisbranch/folio/internal/platform/logging"
	cms "github.com/louisbranch/folio/internal/services/cms/app"
)

// ParseConfig loads FOLIO_* environment defaults and applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (cms.Config, error) {
	cfg, err := cms.LoadConfig()
	if err != nil {
		return cms.Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "The admin API listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return cms.Config{}, err
	}
	return cfg, nil
}

// Run starts the admin API and blocks until ctx ends.
func Run(ctx context.Context, cfg cms.Config) error {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", entrypoint.ServiceServer))

	options := entrypoint.RunOptions{Logger: logger}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceServer, options, func(ctx context.Context) error {
		return cms.Run(ctx, cfg, logger)
	})
}
