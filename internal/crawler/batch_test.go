package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/feedrover/internal/model"
)

func TestNewBatchRunner(t *testing.T) {
	t.Parallel()

	t.Run("creates runner with defaults", func(t *testing.T) {
		t.Parallel()

		b := NewBatchRunner()
		if b.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, b.concurrency)
		}
		if b.limiter != nil {
			t.Error("expected no start limiter by default")
		}
		if b.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		b := NewBatchRunner(WithConcurrency(5), WithStartRate(time.Second), WithConcurrency(0))
		if b.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", b.concurrency)
		}
		if b.limiter == nil {
			t.Error("expected start limiter")
		}
	})
}

func TestBatchRunnerRunBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns results in target order", func(t *testing.T) {
		t.Parallel()

		targets := []Target{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}
		var hooked atomic.Int32

		b := NewBatchRunner(WithConcurrency(2), WithResultHook(func(Result) { hooked.Add(1) }))
		results := b.RunBatch(context.Background(), targets, func(target Target) (*Session, error) {
			driver := &mockDriver{rounds: [][]model.FeedRecord{records(target.Name + "1")}}
			return NewSession(testAllocator(), driver.factory(), &mockSink{}, target,
				WithQuota(1), WithSleeper((&recordingSleeper{}).sleep)), nil
		})

		if len(results) != len(targets) {
			t.Fatalf("expected %d results, got %d", len(targets), len(results))
		}
		for i, res := range results {
			if res.Target != targets[i].Name {
				t.Errorf("result %d is for %s, want %s", i, res.Target, targets[i].Name)
			}
			if res.Outcome != model.OutcomeComplete {
				t.Errorf("result %d: outcome %v", i, res.Outcome)
			}
		}
		if hooked.Load() != int32(len(targets)) {
			t.Errorf("hook called %d times, want %d", hooked.Load(), len(targets))
		}
	})

	t.Run("failing session does not cancel siblings", func(t *testing.T) {
		t.Parallel()

		targets := []Target{{Name: "broken"}, {Name: "fine"}}
		b := NewBatchRunner(WithConcurrency(1))

		results := b.RunBatch(context.Background(), targets, func(target Target) (*Session, error) {
			if target.Name == "broken" {
				return nil, errors.New("output dir not writable")
			}
			driver := &mockDriver{rounds: [][]model.FeedRecord{records("x")}}
			return NewSession(testAllocator(), driver.factory(), &mockSink{}, target, WithQuota(1)), nil
		})

		if results[0].Outcome != model.OutcomePersistFailure || !errors.Is(results[0].Err, ErrPersistFailure) {
			t.Errorf("unexpected first result: %+v", results[0])
		}
		if results[1].Outcome != model.OutcomeComplete {
			t.Errorf("sibling should complete, got %v", results[1].Outcome)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		var mu sync.Mutex
		targets := make([]Target, 6)
		for i := range targets {
			targets[i] = Target{Name: string(rune('a' + i))}
		}

		b := NewBatchRunner(WithConcurrency(2))
		b.RunBatch(context.Background(), targets, func(target Target) (*Session, error) {
			factory := func(context.Context, model.ProxyRecord) (Driver, error) {
				n := running.Add(1)
				mu.Lock()
				if n > peak.Load() {
					peak.Store(n)
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				return &countingDriver{mockDriver: &mockDriver{rounds: [][]model.FeedRecord{records("x")}}, running: &running}, nil
			}
			return NewSession(testAllocator(), factory, &mockSink{}, target, WithQuota(1)), nil
		})

		if peak.Load() > 2 {
			t.Errorf("peak concurrency %d exceeds limit 2", peak.Load())
		}
	})

	t.Run("cancelled context before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := NewBatchRunner(WithStartRate(time.Hour))
		results := b.RunBatch(ctx, []Target{{Name: "a"}}, func(target Target) (*Session, error) {
			t.Error("session must not be built after cancellation")
			return nil, nil
		})

		if results[0].Outcome != model.OutcomeCancelled {
			t.Errorf("expected cancelled, got %v", results[0].Outcome)
		}
	})
}

// countingDriver decrements the running counter when closed.
type countingDriver struct {
	*mockDriver
	running *atomic.Int32
}

func (d *countingDriver) Close() error {
	d.running.Add(-1)
	return d.mockDriver.Close()
}
