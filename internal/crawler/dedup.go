package crawler

import "github.com/nao1215/feedrover/internal/model"

// Deduplicator remembers the record IDs persisted during one session.
// It is not safe for concurrent use; a session runs on one goroutine.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator returns an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Contains reports whether id was added before.
func (d *Deduplicator) Contains(id string) bool {
	_, ok := d.seen[id]
	return ok
}

// Add records id. Adding an ID twice is a no-op.
func (d *Deduplicator) Add(id string) {
	d.seen[id] = struct{}{}
}

// Len returns the number of distinct IDs added.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// Filter returns the records of batch that should be persisted next.
//
// Records with an empty ID, IDs already in seen, and repeats within the
// batch are dropped; the first occurrence wins. At most headroom records
// are returned, in extraction order. seen is not modified.
func Filter(batch []model.FeedRecord, seen *Deduplicator, headroom int) []model.FeedRecord {
	if headroom <= 0 || len(batch) == 0 {
		return nil
	}

	out := make([]model.FeedRecord, 0, min(len(batch), headroom))
	inBatch := make(map[string]struct{}, len(batch))
	for _, r := range batch {
		if r.ID == "" || seen.Contains(r.ID) {
			continue
		}
		if _, dup := inBatch[r.ID]; dup {
			continue
		}
		inBatch[r.ID] = struct{}{}
		out = append(out, r)
		if len(out) == headroom {
			break
		}
	}
	return out
}
