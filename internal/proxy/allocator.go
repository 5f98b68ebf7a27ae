package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nao1215/feedrover/internal/model"
)

// DefaultMaxAttempts bounds how many times Allocate re-reads the pool after
// losing a claim race. Each lost race means another caller made progress, so
// exhausting this requires heavy contention on a tiny pool.
const DefaultMaxAttempts = 16

// Allocator selects and claims the least-used proxy from a Store.
//
// Selection is deterministic except for one random tie-break:
//  1. keep records with the minimum usage count
//  2. among them keep records with the oldest last claim (never claimed is oldest)
//  3. pick uniformly at random among what remains
//
// The claim is an optimistic compare-and-set on the selected record. If
// another caller claimed it first, the allocator observes the new count on
// its next read and selects again. Usage counts only grow, so a record that
// still carries the expected count is still at or below the pool minimum.
//
// An Allocator is safe for concurrent use and is meant to be shared by all
// crawl sessions in a process.
type Allocator struct {
	store       Store
	now         func() time.Time
	maxAttempts int
	logger      *slog.Logger

	// rngMu guards rng; *rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithRand sets the randomness source used for tie-breaks.
// Tests pass a fixed seed so allocation sequences are repeatable.
func WithRand(rng *rand.Rand) Option {
	return func(a *Allocator) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// WithClock sets the function used to stamp claims.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithMaxAttempts sets the number of claim attempts before ErrContention.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used for claim diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

// NewAllocator creates an Allocator over store.
func NewAllocator(store Store, opts ...Option) *Allocator {
	now := time.Now()
	a := &Allocator{
		store:       store,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		rng:         rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(now.Unix()))), //nolint:gosec // tie-break, not security
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// Allocate claims a fairly rotated proxy.
//
// Every failure wraps ErrNotFound, so callers need a single check. The
// underlying cause (an empty pool, ErrContention or a store error) stays
// reachable through errors.Is.
func (a *Allocator) Allocate(ctx context.Context) (model.ProxyRecord, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		records, err := a.store.List(ctx)
		if err != nil {
			return model.ProxyRecord{}, fmt.Errorf("%w: failed to list proxies: %w", ErrNotFound, err)
		}

		selected, ok := a.pick(Candidates(records))
		if !ok {
			return model.ProxyRecord{}, ErrNotFound
		}

		// Strip the monotonic reading so stores compare wall time only.
		claimedAt := a.now().UTC().Round(0)
		err = a.store.CompareAndClaim(ctx, selected.Address, selected.UsageCount, selected.LastClaimedAt, claimedAt)
		switch {
		case err == nil:
			selected.UsageCount++
			selected.LastClaimedAt = &claimedAt
			a.logger.Debug("proxy claimed",
				"address", selected.Address,
				"usage", selected.UsageCount,
				"attempt", attempt,
			)
			return selected, nil
		case errors.Is(err, ErrClaimConflict), errors.Is(err, ErrNotFound):
			// Someone else claimed or removed it; read again.
			a.logger.Debug("proxy claim lost race",
				"address", selected.Address,
				"attempt", attempt,
			)
			continue
		default:
			return model.ProxyRecord{}, fmt.Errorf("%w: failed to claim proxy %s: %w", ErrNotFound, selected.Address, err)
		}
	}

	return model.ProxyRecord{}, fmt.Errorf("%w: %w", ErrNotFound, ErrContention)
}

// pick chooses one candidate, randomly when there is a tie.
func (a *Allocator) pick(candidates []model.ProxyRecord) (model.ProxyRecord, bool) {
	switch len(candidates) {
	case 0:
		return model.ProxyRecord{}, false
	case 1:
		return candidates[0], true
	}

	a.rngMu.Lock()
	i := a.rng.IntN(len(candidates))
	a.rngMu.Unlock()

	return candidates[i], true
}

// Candidates returns the records eligible for the next claim: those with the
// minimum usage count and, among them, the oldest last claim time.
// The input order is preserved.
func Candidates(records []model.ProxyRecord) []model.ProxyRecord {
	if len(records) == 0 {
		return nil
	}

	minUsage := records[0].UsageCount
	for _, r := range records[1:] {
		if r.UsageCount < minUsage {
			minUsage = r.UsageCount
		}
	}

	leastUsed := make([]model.ProxyRecord, 0, len(records))
	for _, r := range records {
		if r.UsageCount == minUsage {
			leastUsed = append(leastUsed, r)
		}
	}

	oldest := leastUsed[0]
	for _, r := range leastUsed[1:] {
		if r.ClaimedBefore(oldest) {
			oldest = r
		}
	}

	out := make([]model.ProxyRecord, 0, len(leastUsed))
	for _, r := range leastUsed {
		if r.SameClaimTime(oldest) {
			out = append(out, r)
		}
	}
	return out
}
