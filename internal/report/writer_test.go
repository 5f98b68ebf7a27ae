package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/feedrover/internal/model"
)

// createTestRuns returns one completed and one aborted run.
func createTestRuns() []model.CrawlRun {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []model.CrawlRun{
		{
			ID:         "run-1",
			Target:     "golang",
			Proxy:      "10.0.0.1:8080",
			Outcome:    model.OutcomeComplete,
			Accepted:   50,
			Rounds:     12,
			OutputPath: "/tmp/feeds/golang.xml",
			StartedAt:  start,
			FinishedAt: start.Add(90 * time.Second),
		},
		{
			ID:         "run-2",
			Target:     "https://example.com/feed",
			Outcome:    model.OutcomeNoProgress,
			Cause:      "5 consecutive empty rounds",
			Accepted:   7,
			Rounds:     9,
			StartedAt:  start.Add(time.Minute),
			FinishedAt: start.Add(2 * time.Minute),
		},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(createTestRuns())
	if s.Runs != 2 || s.Completed != 1 || s.Aborted() != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Accepted != 57 {
		t.Errorf("expected 57 accepted, got %d", s.Accepted)
	}
	outcomes := s.Outcomes()
	if len(outcomes) != 2 || outcomes[0] != model.OutcomeComplete || outcomes[1] != model.OutcomeNoProgress {
		t.Errorf("unexpected outcome order: %v", outcomes)
	}

	empty := Summarize(nil)
	if empty.Runs != 0 || empty.Aborted() != 0 || len(empty.Outcomes()) != 0 {
		t.Errorf("unexpected empty summary: %+v", empty)
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes runs and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"FEEDROVER RUNS",
			"[ok] golang",
			"Outcome:  complete",
			"Accepted: 50 in 12 round(s)",
			"/tmp/feeds/golang.xml",
			"no_progress",
			"COMPLETED: 1",
			"ABORTED:   1",
			"ACCEPTED:  57 records",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "run-1") {
			t.Error("run ID should only appear in verbose mode")
		}
	})

	t.Run("verbose adds id proxy and cause", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"ID:       run-1", "Proxy:    10.0.0.1:8080", "Cause:    5 consecutive empty rounds"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No runs recorded") {
			t.Error("expected empty history message")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON with summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("v1.2.3"))
		if _, err := w.Write(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", decoded.Version)
		}
		if len(decoded.Runs) != 2 || decoded.Runs[1].Outcome != model.OutcomeNoProgress {
			t.Errorf("unexpected runs: %+v", decoded.Runs)
		}
		if decoded.Summary.Accepted != 57 {
			t.Errorf("expected 57 accepted, got %d", decoded.Summary.Accepted)
		}
		if !strings.Contains(buf.String(), `"outcome":"no_progress"`) {
			t.Error("expected outcome encoded by name")
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected single-line output with trailing newline")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"summary\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("nil runs encode as empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"runs":[]`) {
			t.Errorf("expected empty runs array, got %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables chart and warning", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# feedrover Runs",
			"## Summary",
			"## Runs",
			"Target",
			"`golang`",
			"pie",
			"[!WARNING]",
			"https://github.com/nao1215/feedrover",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("faults raise a caution", func(t *testing.T) {
		t.Parallel()

		runs := createTestRuns()
		runs[1].Outcome = model.OutcomeFault

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(runs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Error("expected caution alert")
		}
	})

	t.Run("all complete is a tip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRuns()[:1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected tip alert")
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No runs recorded.") {
			t.Error("expected empty history message")
		}
		if strings.Contains(output, "pie") {
			t.Error("expected no chart without runs")
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write([]model.CrawlRun) (int, error) {
	return 3, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		n, err := m.Write(createTestRuns())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewJSONWriter(&b))
		n, err := m.Write(createTestRuns())
		if err == nil {
			t.Fatal("expected error")
		}
		if n != 3 || b.Len() != 0 {
			t.Errorf("expected to stop after first writer, n=%d second=%d", n, b.Len())
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a longer string", 10, "this is..."},
		{"abcd", 3, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
