package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/config"
	"github.com/nao1215/feedrover/internal/model"
	"github.com/nao1215/feedrover/internal/proxy"
)

// NewProxyCmd creates the proxy command group.
func NewProxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Manage the shared proxy pool",
		Long: `Manage the proxy pool stored in the feedrover database.

Proxies are written as host:port[:user[:pass]]. Credentials are stored in the
database but never printed.`,
	}

	cmd.AddCommand(newProxySeedCmd())
	cmd.AddCommand(newProxyListCmd())
	cmd.AddCommand(newProxyResetCmd())
	cmd.AddCommand(newProxyDeleteCmd())

	return cmd
}

func newProxySeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [spec...]",
		Short: "Add proxies to the pool",
		Long: `Add proxies to the pool. Proxies already present keep their usage counters.

Examples:
  feedrover proxy seed 10.0.0.1:8080 10.0.0.2:8080:user:pass
  feedrover proxy seed --from-env`,
		Args: cobra.ArbitraryArgs,
		RunE: runProxySeedCmd,
	}
	cmd.Flags().Bool("from-env", false, "Also read "+config.EnvProxies+" (or "+config.EnvLegacyProxies+")")
	return cmd
}

func runProxySeedCmd(cmd *cobra.Command, args []string) error {
	fromEnv, err := cmd.Flags().GetBool("from-env")
	if err != nil {
		return err
	}

	specs := append([]string{}, args...)
	if fromEnv {
		if list := config.ProxyListFromEnv(); list != "" {
			specs = append(specs, list)
		}
	}
	if len(specs) == 0 {
		return errors.New("no proxies given: pass host:port specs or use --from-env")
	}

	records, err := proxy.ParseList(strings.Join(specs, ","))
	if err != nil {
		return err
	}

	opts, err := getGlobalOptions(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(opts.dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	added, err := db.SeedProxies(cmd.Context(), records)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d proxies (%d already present)\n",
		added, len(records), len(records)-added)
	return nil
}

func newProxyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the pool with usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := getGlobalOptions(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(opts.dbDir)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeProxyTable(cmd.OutOrStdout(), records)
		},
	}
}

// writeProxyTable prints address, usage and last claim. Credentials are
// reduced to a yes/no column.
func writeProxyTable(out io.Writer, records []model.ProxyRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "The proxy pool is empty.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tAUTH\tUSAGE\tLAST CLAIMED")
	for _, r := range records {
		auth := "no"
		if r.HasCredentials() {
			auth = "yes"
		}
		last := "never"
		if r.LastClaimedAt != nil {
			last = r.LastClaimedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Address, auth, strconv.FormatInt(r.UsageCount, 10), last)
	}
	return tw.Flush()
}

func newProxyResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero every usage counter",
		Long: `Reset sets every usage counter to zero and forgets the last claim times.
Only run it while no crawl is active.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := getGlobalOptions(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(opts.dbDir)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.ResetUsage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d proxies\n", n)
			return nil
		},
	}
}

func newProxyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Remove a proxy from the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getGlobalOptions(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(opts.dbDir)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteProxy(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, proxy.ErrNotFound) {
					return fmt.Errorf("proxy %s is not in the pool", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
