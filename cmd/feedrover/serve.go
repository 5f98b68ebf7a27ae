package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, run history and pool status over HTTP",
		Long: `Serve starts a read-only HTTP API over the feedrover database.

Endpoints:
  GET /health      liveness and database check
  GET /            service information
  GET /runs        recent runs (?target=, ?limit=)
  GET /runs/{id}   a single run
  GET /proxies     pool usage counters (no credentials)

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", server.DefaultAddr, "Listen address")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	opts, err := getGlobalOptions(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(opts)

	db, err := openDB(opts.dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	srv := server.New(db,
		server.WithVersion(getVersion()),
		server.WithLogger(logger),
	)
	return srv.ListenAndServe(ctx, addr)
}
