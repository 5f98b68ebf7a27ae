package proxy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nao1215/feedrover/internal/model"
)

// Store is the durable mapping of proxy records used by the Allocator.
//
// CompareAndClaim must be a single atomic conditional update: it increments
// the usage count by one and sets the last claim time to now only when the
// record still carries expectedUsage and expectedLast (nil meaning never
// claimed). When the record changed it returns ErrClaimConflict; when the
// address is unknown it returns ErrNotFound.
type Store interface {
	List(ctx context.Context) ([]model.ProxyRecord, error)
	CompareAndClaim(ctx context.Context, address string, expectedUsage int64, expectedLast *time.Time, now time.Time) error
}

// MemoryStore is an in-process Store guarded by a mutex.
// It backs tests and dry runs; production runs use the SQLite store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.ProxyRecord
}

// NewMemoryStore returns a store holding copies of records.
// Later records with the same address replace earlier ones.
func NewMemoryStore(records ...model.ProxyRecord) *MemoryStore {
	s := &MemoryStore{records: make(map[string]model.ProxyRecord, len(records))}
	for _, r := range records {
		s.records[r.Address] = cloneRecord(r)
	}
	return s
}

// Add inserts a record unless its address is already present.
// It reports whether the record was inserted.
func (s *MemoryStore) Add(r model.ProxyRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.Address]; ok {
		return false
	}
	s.records[r.Address] = cloneRecord(r)
	return true
}

// List returns a snapshot of all records ordered by address.
func (s *MemoryStore) List(_ context.Context) ([]model.ProxyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ProxyRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, cloneRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out, nil
}

// Get returns a copy of one record.
func (s *MemoryStore) Get(address string) (model.ProxyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[address]
	return cloneRecord(r), ok
}

// CompareAndClaim implements Store.
func (s *MemoryStore) CompareAndClaim(ctx context.Context, address string, expectedUsage int64, expectedLast *time.Time, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[address]
	if !ok {
		return ErrNotFound
	}
	expected := model.ProxyRecord{UsageCount: expectedUsage, LastClaimedAt: expectedLast}
	if current.UsageCount != expectedUsage || !current.SameClaimTime(expected) {
		return ErrClaimConflict
	}

	claimedAt := now
	current.UsageCount++
	current.LastClaimedAt = &claimedAt
	s.records[address] = current
	return nil
}

// cloneRecord copies the timestamp so callers cannot mutate stored state.
func cloneRecord(r model.ProxyRecord) model.ProxyRecord {
	if r.LastClaimedAt != nil {
		t := *r.LastClaimedAt
		r.LastClaimedAt = &t
	}
	return r
}
