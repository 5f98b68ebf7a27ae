package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/feedrover/internal/model"
)

// MarkdownWriter outputs run history in Markdown format.
// This format is designed for pasting a batch summary into an issue or wiki.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the runs in Markdown format.
func (w *MarkdownWriter) Write(runs []model.CrawlRun) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(runs)

	md.H1("feedrover Runs")
	md.PlainText("")

	w.writeSummary(md, summary)
	w.writeRuns(md, runs)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [feedrover](https://github.com/nao1215/feedrover)*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Runs", strconv.Itoa(s.Runs)},
			{"Completed", strconv.Itoa(s.Completed)},
			{"Aborted", strconv.Itoa(s.Aborted())},
			{"Records accepted", strconv.Itoa(s.Accepted)},
		},
	})
	md.PlainText("")

	if s.Runs > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Run Outcomes"),
			piechart.WithShowData(true),
		)
		for _, o := range s.Outcomes() {
			chart.LabelAndIntValue(o.String(), uint64(s.ByOutcome[o])) //nolint:gosec // counts are non-negative
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Runs == 0:
		md.Note("No runs recorded yet.")
	case s.ByOutcome[model.OutcomeFault] > 0 || s.ByOutcome[model.OutcomePersistFailure] > 0:
		md.Cautionf("%d run(s) failed with a fault or could not write their feed.",
			s.ByOutcome[model.OutcomeFault]+s.ByOutcome[model.OutcomePersistFailure])
	case s.Aborted() > 0:
		md.Warningf("%d of %d run(s) stopped before reaching the quota.", s.Aborted(), s.Runs)
	default:
		md.Tip("Every run reached its quota.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, runs []model.CrawlRun) {
	md.H2("Runs")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		cause := r.Cause
		if cause == "" {
			cause = "-"
		}
		rows[i] = []string{
			"`" + r.Target + "`",
			r.Outcome.String(),
			strconv.Itoa(r.Accepted),
			strconv.Itoa(r.Rounds),
			r.StartedAt.UTC().Format(timeLayout),
			truncateString(cause, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Target", "Outcome", "Accepted", "Rounds", "Started", "Cause"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
