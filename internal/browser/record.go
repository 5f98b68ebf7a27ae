package browser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/feedrover/internal/model"
)

// rawRecord is the shape returned by the extraction script.
type rawRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	AuthorHandle string `json:"author_handle"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	URL          string `json:"url"`
	PublishedAt  string `json:"published_at"`
	Replies      string `json:"replies"`
	Reposts      string `json:"reposts"`
	Likes        string `json:"likes"`
	Views        string `json:"views"`
}

// decodeBatch converts the script's JSON output into feed records.
func decodeBatch(raw string) ([]model.FeedRecord, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var items []rawRecord
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %w", err)
	}

	records := make([]model.FeedRecord, 0, len(items))
	for _, it := range items {
		records = append(records, it.toFeedRecord())
	}
	return records, nil
}

func (r rawRecord) toFeedRecord() model.FeedRecord {
	return model.FeedRecord{
		ID:           strings.TrimSpace(r.ID),
		Text:         r.Text,
		AuthorHandle: strings.TrimPrefix(strings.TrimSpace(r.AuthorHandle), "@"),
		AuthorName:   strings.TrimSpace(r.AuthorName),
		AuthorURL:    r.AuthorURL,
		URL:          r.URL,
		PublishedAt:  parsePublished(r.PublishedAt),
		Replies:      strings.TrimSpace(r.Replies),
		Reposts:      strings.TrimSpace(r.Reposts),
		Likes:        strings.TrimSpace(r.Likes),
		Views:        strings.TrimSpace(r.Views),
	}
}

// parsePublished parses an RFC 3339 timestamp. Anything else is the zero time.
func parsePublished(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
