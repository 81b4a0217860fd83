package main

import (
	"context"
	"database/sql"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/propdesk/internal/config"
	"github.com/vbonduro/propdesk/internal/db"
	"github.com/vbonduro/propdesk/internal/logging"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the critical ticket watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// setup loads config, the logger and the migrated database shared by every
// command.
func setup() (*config.Config, *slog.Logger, *sql.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return nil, nil, nil, nil, err
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		cleanup()
		return nil, nil, nil, nil, err
	}
	closeAll := func() {
		closeWithLog(database, "database", logger)
		cleanup()
	}
	return cfg, logger, database, closeAll, nil
}

func serve(ctx context.Context) error {
	cfg, logger, database, closeAll, err := setup()
	if err != nil {
		return err
	}
	defer closeAll()

	a, err := newApp(cfg, database, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.watcher.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return a.server.ListenAndServe(ctx, cfg.ListenAddr, shutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("stopped")
	return nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
