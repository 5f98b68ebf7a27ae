package model

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of a crawl session.
// Every session ends in exactly one outcome.
type Outcome int

const (
	// OutcomeComplete means the quota was reached.
	OutcomeComplete Outcome = iota

	// OutcomeNoProxyAvailable means the proxy pool was empty; the session never started.
	OutcomeNoProxyAvailable

	// OutcomeNavigationTimeout means the target could not be opened in time.
	OutcomeNavigationTimeout

	// OutcomePersistFailure means the output document could not be updated.
	OutcomePersistFailure

	// OutcomeNoProgress means too many consecutive rounds produced nothing new.
	OutcomeNoProgress

	// OutcomeCancelled means the session was stopped from outside (e.g. SIGTERM).
	OutcomeCancelled

	// OutcomeFault means an unexpected panic occurred inside the crawl loop.
	OutcomeFault
)

var outcomeNames = map[Outcome]string{
	OutcomeComplete:          "complete",
	OutcomeNoProxyAvailable:  "no_proxy_available",
	OutcomeNavigationTimeout: "navigation_timeout",
	OutcomePersistFailure:    "persist_failure",
	OutcomeNoProgress:        "no_progress",
	OutcomeCancelled:         "cancelled",
	OutcomeFault:             "fault",
}

// String returns the stable name used in storage and reports.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Aborted reports whether the outcome is anything other than completion.
func (o Outcome) Aborted() bool {
	return o != OutcomeComplete
}

// ParseOutcome converts a stored name back into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// CrawlRun is the persisted summary of one finished crawl session.
type CrawlRun struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Proxy      string    `json:"proxy,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Cause      string    `json:"cause,omitempty"`
	Accepted   int       `json:"accepted"`
	Rounds     int       `json:"rounds"`
	OutputPath string    `json:"output_path,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (r CrawlRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
