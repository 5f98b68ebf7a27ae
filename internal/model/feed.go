package model

import "time"

// FeedRecord is one discovered unit of content.
// Records are produced by a browser driver and never modified afterwards;
// a crawl session either accepts or discards them.
type FeedRecord struct {
	// ID is unique within a crawl session and drives deduplication.
	ID string `json:"id"`

	// Text is the display text of the post.
	Text string `json:"text"`

	AuthorHandle string `json:"author_handle"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`

	// URL is the permanent link to the post.
	URL string `json:"url"`

	// PublishedAt is zero when the driver could not read a timestamp.
	PublishedAt time.Time `json:"published_at"`

	// Engagement counters are kept exactly as displayed ("1.2K", "3").
	// They are opaque text and never parsed.
	Replies string `json:"replies"`
	Reposts string `json:"reposts"`
	Likes   string `json:"likes"`
	Views   string `json:"views"`
}
