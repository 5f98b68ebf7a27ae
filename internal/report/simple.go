package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/feedrover/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: Plain text with ASCII rules rather than ANSI colors, so
// the output pipes cleanly into files and other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds the run ID, proxy and abort cause to each entry.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the runs in human-readable format.
func (w *SimpleWriter) Write(runs []model.CrawlRun) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeRuns(&sb, runs)
	w.writeSummary(&sb, Summarize(runs))

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FEEDROVER RUNS\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeRuns(sb *strings.Builder, runs []model.CrawlRun) {
	if len(runs) == 0 {
		sb.WriteString("  No runs recorded\n\n")
		return
	}

	for _, r := range runs {
		fmt.Fprintf(sb, "[%s] %s\n", outcomeIndicator(r.Outcome), r.Target)
		fmt.Fprintf(sb, "    Outcome:  %s\n", r.Outcome)
		fmt.Fprintf(sb, "    Accepted: %d in %d round(s)\n", r.Accepted, r.Rounds)
		fmt.Fprintf(sb, "    Started:  %s (%s)\n", r.StartedAt.Local().Format(timeLayout), r.Duration().Round(1e9))
		if r.OutputPath != "" {
			fmt.Fprintf(sb, "    Output:   %s\n", r.OutputPath)
		}
		if w.verbose {
			fmt.Fprintf(sb, "    ID:       %s\n", r.ID)
			if r.Proxy != "" {
				fmt.Fprintf(sb, "    Proxy:    %s\n", r.Proxy)
			}
			if r.Cause != "" {
				fmt.Fprintf(sb, "    Cause:    %s\n", r.Cause)
			}
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  RUNS:      %d\n", s.Runs)
	fmt.Fprintf(sb, "  COMPLETED: %d\n", s.Completed)
	fmt.Fprintf(sb, "  ABORTED:   %d\n", s.Aborted())
	fmt.Fprintf(sb, "  ACCEPTED:  %d records\n", s.Accepted)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// outcomeIndicator returns a short marker for the outcome.
func outcomeIndicator(o model.Outcome) string {
	switch o {
	case model.OutcomeComplete:
		return "ok"
	case model.OutcomeCancelled:
		return "--"
	case model.OutcomeFault, model.OutcomePersistFailure:
		return "!!"
	default:
		return "! "
	}
}
