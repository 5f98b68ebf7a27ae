package report

import (
	"io"
	"sort"

	"github.com/nao1215/feedrover/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl run history in various formats.
type Writer interface {
	// Write outputs the runs to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(runs []model.CrawlRun) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface writes runs,
// not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the runs to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(runs []model.CrawlRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Summary aggregates a set of runs.
type Summary struct {
	Runs      int                   `json:"runs"`
	Completed int                   `json:"completed"`
	Accepted  int                   `json:"accepted"`
	ByOutcome map[model.Outcome]int `json:"by_outcome"`
}

// Summarize counts runs per outcome and totals accepted records.
func Summarize(runs []model.CrawlRun) Summary {
	s := Summary{
		Runs:      len(runs),
		ByOutcome: make(map[model.Outcome]int),
	}
	for _, r := range runs {
		s.Accepted += r.Accepted
		s.ByOutcome[r.Outcome]++
		if r.Outcome == model.OutcomeComplete {
			s.Completed++
		}
	}
	return s
}

// Aborted returns the number of runs that did not complete.
func (s Summary) Aborted() int {
	return s.Runs - s.Completed
}

// Outcomes returns the outcomes present in the summary in declaration order.
func (s Summary) Outcomes() []model.Outcome {
	outcomes := make([]model.Outcome, 0, len(s.ByOutcome))
	for o := range s.ByOutcome {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	return outcomes
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for run timestamps in text and markdown output.
const timeLayout = "2006-01-02 15:04:05 MST"
