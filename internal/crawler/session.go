package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nao1215/feedrover/internal/model"
)

// Session defaults.
const (
	DefaultQuota               = 50
	DefaultEmptyRoundThreshold = 5
	DefaultPacingMin           = 2 * time.Second
	DefaultPacingMax           = 5 * time.Second
	DefaultNavigationTimeout   = 60 * time.Second
)

// Allocator hands out a claimed proxy for one session.
type Allocator interface {
	Allocate(ctx context.Context) (model.ProxyRecord, error)
}

// Driver controls one browser page bound to one proxy.
type Driver interface {
	// Navigate opens the target page. It must honor ctx's deadline.
	Navigate(ctx context.Context, target Target) error

	// ExtractBatch returns the records currently rendered on the page.
	ExtractBatch(ctx context.Context) ([]model.FeedRecord, error)

	// Advance scrolls so the next round can see newer records.
	Advance(ctx context.Context) error

	// Close releases the browser. It is called exactly once per driver.
	Close() error
}

// DriverFactory builds a Driver that egresses through proxy.
type DriverFactory func(ctx context.Context, proxy model.ProxyRecord) (Driver, error)

// Sink is the durable output of a session.
type Sink interface {
	Append(records []model.FeedRecord) error
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in that case.
type Sleeper func(ctx context.Context, d time.Duration) error

// State is a step of the session state machine.
type State int

const (
	StateInit State = iota
	StateNavigating
	StateExtracting
	StateFiltering
	StatePersisting
	StatePacing
	StateComplete
	StateAborted
)

var stateNames = [...]string{
	StateInit:       "init",
	StateNavigating: "navigating",
	StateExtracting: "extracting",
	StateFiltering:  "filtering",
	StatePersisting: "persisting",
	StatePacing:     "pacing",
	StateComplete:   "complete",
	StateAborted:    "aborted",
}

// String returns the state name used in logs.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Progress is reported after every round.
type Progress struct {
	Target      string
	Round       int
	Fresh       int
	Accepted    int
	Quota       int
	EmptyRounds int
}

// Result is the outcome of one session.
type Result struct {
	RunID      string
	Outcome    model.Outcome
	Err        error
	Accepted   int
	Rounds     int
	Proxy      string
	Target     string
	OutputPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run converts the result into a storable run record.
func (r Result) Run() model.CrawlRun {
	run := model.CrawlRun{
		ID:         r.RunID,
		Target:     r.Target,
		Proxy:      r.Proxy,
		Outcome:    r.Outcome,
		Accepted:   r.Accepted,
		Rounds:     r.Rounds,
		OutputPath: r.OutputPath,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Err != nil {
		run.Cause = r.Err.Error()
	}
	return run
}

// Session crawls one target until its quota is met or it aborts.
//
// Design decision: the session is a plain loop over explicit states rather
// than a chain of pipeline steps, because every round feeds the next one
// (dedup set, empty-round counter) and the exit conditions are checked
// between specific states.
type Session struct {
	allocator Allocator
	newDriver DriverFactory
	sink      Sink
	target    Target

	quota               int
	emptyRoundThreshold int
	pacingMin           time.Duration
	pacingMax           time.Duration
	navigationTimeout   time.Duration
	outputPath          string
	runID               string

	rng      *rand.Rand
	sleep    Sleeper
	now      func() time.Time
	logger   *slog.Logger
	progress func(Progress)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithQuota sets how many new records end the session. Non-positive values are ignored.
func WithQuota(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.quota = n
		}
	}
}

// WithEmptyRoundThreshold sets how many consecutive empty rounds abort the
// session. Non-positive values are ignored.
func WithEmptyRoundThreshold(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.emptyRoundThreshold = n
		}
	}
}

// WithPacing sets the bounds of the random delay between rounds.
func WithPacing(minDelay, maxDelay time.Duration) SessionOption {
	return func(s *Session) {
		if minDelay < 0 || maxDelay < 0 {
			return
		}
		if maxDelay < minDelay {
			minDelay, maxDelay = maxDelay, minDelay
		}
		s.pacingMin = minDelay
		s.pacingMax = maxDelay
	}
}

// WithNavigationTimeout bounds opening the target page.
func WithNavigationTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.navigationTimeout = d
		}
	}
}

// WithOutputPath records where the sink writes, for the run history.
func WithOutputPath(path string) SessionOption {
	return func(s *Session) {
		s.outputPath = path
	}
}

// WithRunID sets the identifier carried into the run record. The CLI names
// the session's output file after it.
func WithRunID(id string) SessionOption {
	return func(s *Session) {
		s.runID = id
	}
}

// WithRand sets the randomness source for pacing delays.
func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSleeper replaces the pacing sleep; tests use it to skip real waits.
func WithSleeper(sleep Sleeper) SessionOption {
	return func(s *Session) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithClock sets the function used for start and finish times.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithProgress registers a callback invoked after every round.
func WithProgress(fn func(Progress)) SessionOption {
	return func(s *Session) {
		s.progress = fn
	}
}

// NewSession creates a session for target.
func NewSession(allocator Allocator, newDriver DriverFactory, sink Sink, target Target, opts ...SessionOption) *Session {
	seed := uint64(time.Now().UnixNano())
	s := &Session{
		allocator:           allocator,
		newDriver:           newDriver,
		sink:                sink,
		target:              target,
		quota:               DefaultQuota,
		emptyRoundThreshold: DefaultEmptyRoundThreshold,
		pacingMin:           DefaultPacingMin,
		pacingMax:           DefaultPacingMax,
		navigationTimeout:   DefaultNavigationTimeout,
		rng:                 rand.New(rand.NewPCG(seed, seed>>1)), //nolint:gosec // pacing jitter, not security
		sleep:               sleepContext,
		now:                 time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("target", target.Name)

	return s
}

// Run executes the session. It always returns a Result; Err is nil only
// when the outcome is complete. A panic anywhere in the session, including
// allocation and browser start, is reported as a fault.
func (s *Session) Run(ctx context.Context) (out Result) {
	res := &Result{
		RunID:      s.runID,
		Target:     s.target.Name,
		OutputPath: s.outputPath,
		StartedAt:  s.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			out = s.abort(res, model.OutcomeFault, fmt.Errorf("%w: %v", ErrSessionFault, r))
		}
	}()
	s.enter(StateInit)

	proxy, err := s.allocator.Allocate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancel(ctx, res)
		}
		return s.abort(res, model.OutcomeNoProxyAvailable, fmt.Errorf("%w: %w", ErrNoProxyAvailable, err))
	}
	res.Proxy = proxy.Address
	s.logger.Info("proxy claimed", "proxy", proxy.Redacted(), "usage", proxy.UsageCount)

	driver, err := s.newDriver(ctx, proxy)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancel(ctx, res)
		}
		return s.abort(res, model.OutcomeNavigationTimeout, fmt.Errorf("%w: failed to start browser: %w", ErrNavigationTimeout, err))
	}

	return s.crawl(ctx, driver, res)
}

// crawl drives the round loop. The driver is released on every return path,
// including a panic, before Run turns the panic into a fault.
func (s *Session) crawl(ctx context.Context, driver Driver, res *Result) Result {
	defer func() {
		if err := driver.Close(); err != nil {
			s.logger.Warn("failed to close browser", "error", err)
		}
	}()

	s.enter(StateNavigating)
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout)
	err := driver.Navigate(navCtx, s.target)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return s.cancel(ctx, res)
		}
		return s.abort(res, model.OutcomeNavigationTimeout, fmt.Errorf("%w: %s: %w", ErrNavigationTimeout, s.target.URL, err))
	}

	seen := NewDeduplicator()
	emptyRounds := 0

	for {
		if ctx.Err() != nil {
			return s.cancel(ctx, res)
		}
		res.Rounds++

		s.enter(StateExtracting)
		batch, err := driver.ExtractBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return s.cancel(ctx, res)
			}
			s.logger.Warn("round produced no records",
				"round", res.Rounds,
				"error", fmt.Errorf("%w: %w", ErrExtractionFailure, err),
			)
			batch = nil
		}

		s.enter(StateFiltering)
		fresh := Filter(batch, seen, s.quota-res.Accepted)

		if len(fresh) > 0 {
			s.enter(StatePersisting)
			if err := s.sink.Append(fresh); err != nil {
				return s.abort(res, model.OutcomePersistFailure, fmt.Errorf("%w: %w", ErrPersistFailure, err))
			}
			for _, r := range fresh {
				seen.Add(r.ID)
			}
			res.Accepted += len(fresh)
			emptyRounds = 0
		} else {
			emptyRounds++
		}

		s.logger.Debug("round finished",
			"round", res.Rounds,
			"extracted", len(batch),
			"fresh", len(fresh),
			"accepted", res.Accepted,
			"empty_rounds", emptyRounds,
		)
		if s.progress != nil {
			s.progress(Progress{
				Target:      s.target.Name,
				Round:       res.Rounds,
				Fresh:       len(fresh),
				Accepted:    res.Accepted,
				Quota:       s.quota,
				EmptyRounds: emptyRounds,
			})
		}

		if res.Accepted >= s.quota {
			return s.complete(res)
		}
		if emptyRounds >= s.emptyRoundThreshold {
			return s.abort(res, model.OutcomeNoProgress,
				fmt.Errorf("%w: %d consecutive empty rounds", ErrNoProgress, emptyRounds))
		}

		s.enter(StatePacing)
		if err := driver.Advance(ctx); err != nil {
			if ctx.Err() != nil {
				return s.cancel(ctx, res)
			}
			s.logger.Warn("failed to scroll", "round", res.Rounds, "error", err)
		}
		if err := s.sleep(ctx, s.pacingDelay()); err != nil {
			return s.cancel(ctx, res)
		}
	}
}

// pacingDelay draws a uniform delay in [pacingMin, pacingMax].
func (s *Session) pacingDelay() time.Duration {
	span := int64(s.pacingMax - s.pacingMin)
	if span <= 0 {
		return s.pacingMin
	}
	return s.pacingMin + time.Duration(s.rng.Int64N(span+1))
}

func (s *Session) enter(state State) {
	s.logger.Debug("session state", "state", state.String())
}

func (s *Session) complete(res *Result) Result {
	s.enter(StateComplete)
	res.Outcome = model.OutcomeComplete
	res.Err = nil
	res.FinishedAt = s.now()
	s.logger.Info("crawl complete",
		"accepted", res.Accepted,
		"rounds", res.Rounds,
	)
	return *res
}

func (s *Session) abort(res *Result, outcome model.Outcome, err error) Result {
	s.enter(StateAborted)
	res.Outcome = outcome
	res.Err = err
	res.FinishedAt = s.now()
	s.logger.Warn("crawl aborted",
		"outcome", outcome.String(),
		"accepted", res.Accepted,
		"rounds", res.Rounds,
		"error", err,
	)
	return *res
}

func (s *Session) cancel(ctx context.Context, res *Result) Result {
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	return s.abort(res, model.OutcomeCancelled, err)
}

// sleepContext waits for d unless ctx ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
