package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/feedrover/internal/model"
)

// DefaultConcurrency is the number of sessions run at once.
const DefaultConcurrency = 2

// SessionFactory builds the session for one target.
// An error means the session could not be prepared (e.g. the output file
// could not be created) and is reported as a persist failure.
type SessionFactory func(target Target) (*Session, error)

// BatchRunner runs one session per target.
//
// Design decision: sessions never return errors to the errgroup. A session
// that aborts is a normal result, and one failing target must not cancel its
// siblings.
type BatchRunner struct {
	// concurrency is the maximum number of sessions running at once.
	concurrency int

	// limiter spaces out session starts so proxies are not all dialed in
	// the same instant. Nil means no throttling.
	limiter *rate.Limiter

	// onResult is called from the session goroutine when it finishes.
	onResult func(Result)

	logger *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithConcurrency sets the maximum number of concurrent sessions.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithStartRate allows at most one session start per interval.
func WithStartRate(interval time.Duration) BatchOption {
	return func(b *BatchRunner) {
		if interval > 0 {
			b.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithResultHook registers a callback for each finished session.
// It runs on the session's goroutine and must be safe for concurrent use.
func WithResultHook(fn func(Result)) BatchOption {
	return func(b *BatchRunner) {
		b.onResult = fn
	}
}

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// NewBatchRunner creates a BatchRunner.
func NewBatchRunner(opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{concurrency: DefaultConcurrency}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// RunBatch runs a session for every target and returns the results in
// target order.
func (b *BatchRunner) RunBatch(ctx context.Context, targets []Target, newSession SessionFactory) []Result {
	b.logger.Info("starting crawl batch",
		"targets", len(targets),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	results := make([]Result, len(targets))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			results[i] = b.runOne(ctx, target, newSession)
			if b.onResult != nil {
				b.onResult(results[i])
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	b.logger.Info("crawl batch complete",
		"targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	return results
}

func (b *BatchRunner) runOne(ctx context.Context, target Target, newSession SessionFactory) Result {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			now := time.Now()
			return Result{
				Outcome:    model.OutcomeCancelled,
				Err:        err,
				Target:     target.Name,
				StartedAt:  now,
				FinishedAt: now,
			}
		}
	}

	session, err := newSession(target)
	if err != nil {
		now := time.Now()
		b.logger.Warn("failed to prepare session", "target", target.Name, "error", err)
		return Result{
			Outcome:    model.OutcomePersistFailure,
			Err:        fmt.Errorf("%w: %w", ErrPersistFailure, err),
			Target:     target.Name,
			StartedAt:  now,
			FinishedAt: now,
		}
	}

	return session.Run(ctx)
}
