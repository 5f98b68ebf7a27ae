package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/database"
	"github.com/nao1215/feedrover/internal/model"
	"github.com/nao1215/feedrover/internal/report"
)

// defaultHistoryLimit is how many runs history shows without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show recent crawl runs",
		Long: `History lists finished crawl sessions, newest first, with their outcome,
accepted record count and abort cause.

Examples:
  feedrover history
  feedrover history golang --limit 5
  feedrover history --markdown > runs.md
  feedrover history --id 6f1c0a7e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to show")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown (mutually exclusive with --json)")
	cmd.Flags().String("id", "", "Show a single run by ID")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return errors.New("--limit must be positive")
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetString("id")
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

	var target string
	if len(args) == 1 {
		target = args[0]
	}

	var runs []model.CrawlRun
	if id != "" {
		run, err := db.GetRun(cmd.Context(), id)
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("no run with id %s", id)
		}
		if err != nil {
			return err
		}
		runs = []model.CrawlRun{run}
	} else {
		runs, err = db.ListRuns(cmd.Context(), target, limit)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	var w report.Writer
	switch {
	case asJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case asMarkdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(opts.verbose || id != ""))
	}
	_, err = w.Write(runs)
	return err
}
