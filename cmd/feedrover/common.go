package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/config"
	"github.com/nao1215/feedrover/internal/database"
	flog "github.com/nao1215/feedrover/internal/log"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	verbose   bool
	quiet     bool
	logFormat string
	dbDir     string
}

// getGlobalOptions reads the persistent flags and resolves the database
// directory: flag, then FEEDROVER_DB_DIR, then the XDG data directory.
func getGlobalOptions(cmd *cobra.Command) (globalOptions, error) {
	var opts globalOptions
	var err error

	flags := cmd.Flags()
	if opts.verbose, err = flags.GetBool("verbose"); err != nil {
		return opts, err
	}
	if opts.quiet, err = flags.GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.logFormat, err = flags.GetString("log-format"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = os.Getenv(config.EnvDBDir)
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	return opts, nil
}

// setupLogger creates the redacting logger for a command.
func setupLogger(opts globalOptions) *slog.Logger {
	return flog.NewLogger(os.Stderr, flog.Options{
		Verbose: opts.verbose,
		Quiet:   opts.quiet,
		Format:  opts.logFormat,
	})
}

// openDB opens (and creates if needed) the feedrover database in dir.
func openDB(dir string) (*database.ProxyDB, error) {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
