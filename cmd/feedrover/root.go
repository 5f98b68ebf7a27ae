package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/config"
)

// NewRootCmd creates the root command for feedrover.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedrover",
		Short: "Turn live search pages into RSS feeds through a rotating proxy pool",
		Long: `feedrover drives a headless Chrome through HTTP proxies, scrolls a search
or timeline page and appends every post it has not seen yet to an RSS 2.0 file.

Proxies are shared through a SQLite database and handed out least-used first,
so several crawls spread their traffic evenly. Run history is kept in the same
database.

Environment variables (also read from ./.env):
  FEEDROVER_PROXIES   comma-separated host:port[:user[:pass]] list
  FEEDROVER_DB_DIR    database directory`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return err
			}
			if envFile != "" {
				return config.LoadEnv(envFile)
			}
			return config.LoadEnv()
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("quiet", false, "Only log warnings and errors")
	cmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: auto, text or json")
	cmd.PersistentFlags().String("db-dir", "",
		"Database directory (default: $FEEDROVER_DB_DIR or the XDG data directory)")
	cmd.PersistentFlags().String("env-file", "", "Load environment variables from this file instead of ./.env")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewProxyCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
