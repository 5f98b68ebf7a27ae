package crawler

import (
	"fmt"
	"testing"

	"github.com/nao1215/feedrover/internal/model"
)

func records(ids ...string) []model.FeedRecord {
	out := make([]model.FeedRecord, len(ids))
	for i, id := range ids {
		out[i] = model.FeedRecord{ID: id, Text: "post " + id}
	}
	return out
}

func ids(rs []model.FeedRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestDeduplicator(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator()
	if d.Contains("1") || d.Len() != 0 {
		t.Fatal("new deduplicator must be empty")
	}

	d.Add("1")
	d.Add("1")
	d.Add("2")

	if !d.Contains("1") || !d.Contains("2") {
		t.Error("expected added IDs to be present")
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	seen := NewDeduplicator()
	seen.Add("a")
	seen.Add("c")

	tests := []struct {
		name     string
		batch    []model.FeedRecord
		headroom int
		want     []string
	}{
		{
			name:     "drops seen records",
			batch:    records("a", "b", "c", "d"),
			headroom: 10,
			want:     []string{"b", "d"},
		},
		{
			name:     "first occurrence in batch wins",
			batch:    records("b", "d", "b", "e", "d"),
			headroom: 10,
			want:     []string{"b", "d", "e"},
		},
		{
			name:     "drops empty IDs",
			batch:    records("", "b", ""),
			headroom: 10,
			want:     []string{"b"},
		},
		{
			name:     "truncates to headroom in order",
			batch:    records("b", "d", "e", "f"),
			headroom: 2,
			want:     []string{"b", "d"},
		},
		{
			name:     "zero headroom",
			batch:    records("b"),
			headroom: 0,
			want:     []string{},
		},
		{
			name:     "empty batch",
			batch:    nil,
			headroom: 5,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ids(Filter(tt.batch, seen, tt.headroom))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}

	if seen.Len() != 2 {
		t.Errorf("Filter must not mutate seen, Len() = %d", seen.Len())
	}
}

func TestFilterIsIdempotentAfterPersist(t *testing.T) {
	t.Parallel()

	seen := NewDeduplicator()
	batch := records("1", "2", "3")

	first := Filter(batch, seen, 10)
	for _, r := range first {
		seen.Add(r.ID)
	}

	if again := Filter(batch, seen, 10); len(again) != 0 {
		t.Errorf("re-filtering a persisted batch returned %v", ids(again))
	}
}
