package rss

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/moby/sys/atomicwriter"

	"github.com/nao1215/feedrover/internal/model"
)

// Generator is written to the channel's generator element.
const Generator = "feedrover"

// suffix closes the document. It is removed before every append and
// written back afterwards.
const suffix = "</channel>\n</rss>\n"

// Channel holds the document-level metadata.
type Channel struct {
	Title       string
	Link        string
	Description string
}

// Document is an RSS file that grows by whole-file atomic replacement.
// It is safe for concurrent use, but only one Document should own a path.
type Document struct {
	path string
	perm os.FileMode
	now  func() time.Time

	mu    sync.Mutex
	items int
}

// Option configures a Document.
type Option func(*Document)

// WithClock sets the clock used for lastBuildDate and missing pubDates.
func WithClock(now func() time.Time) Option {
	return func(d *Document) {
		if now != nil {
			d.now = now
		}
	}
}

// WithPerm sets the file mode of the document.
func WithPerm(perm os.FileMode) Option {
	return func(d *Document) {
		d.perm = perm
	}
}

func newDocument(path string, opts []Option) *Document {
	d := &Document{
		path: path,
		perm: 0o644,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create writes a new document with no items.
// It fails with ErrDocumentExists if path is already present.
func Create(path string, ch Channel, opts ...Option) (*Document, error) {
	d := newDocument(path, opts)

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to check document path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:feedrover="` + Namespace + `">` + "\n")
	b.WriteString("<channel>\n")
	element(&b, "title", ch.Title)
	element(&b, "link", ch.Link)
	element(&b, "description", ch.Description)
	element(&b, "lastBuildDate", d.now().Format(time.RFC1123Z))
	element(&b, "generator", Generator)
	b.WriteString(suffix)

	if err := atomicwriter.WriteFile(path, []byte(b.String()), d.perm); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return d, nil
}

// Open reopens an existing document and counts its items.
func Open(path string, opts ...Option) (*Document, error) {
	d := newDocument(path, opts)

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if !bytes.HasSuffix(data, []byte(suffix)) {
		return nil, fmt.Errorf("%w: %s does not end with the channel close", ErrCorruptDocument, path)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
	}
	if xmlquery.FindOne(doc, "/rss/channel") == nil {
		return nil, fmt.Errorf("%w: %s has no channel", ErrCorruptDocument, path)
	}
	d.items = len(xmlquery.Find(doc, "/rss/channel/item"))

	return d, nil
}

// Path returns the document file path.
func (d *Document) Path() string {
	return d.path
}

// ItemCount returns the number of items in the document.
func (d *Document) ItemCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.items
}

// Append adds records as items, in order. An empty slice is a no-op.
// On error the file on disk is unchanged.
func (d *Document) Append(records []model.FeedRecord) error {
	if len(records) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	body, ok := bytes.CutSuffix(data, []byte(suffix))
	if !ok {
		return fmt.Errorf("%w: %s does not end with the channel close", ErrCorruptDocument, d.path)
	}

	var b strings.Builder
	b.Grow(len(data) + len(records)*512)
	b.Write(body)
	now := d.now()
	for _, r := range records {
		writeItem(&b, r, now)
	}
	b.WriteString(suffix)

	if err := atomicwriter.WriteFile(d.path, []byte(b.String()), d.perm); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}

	d.items += len(records)
	return nil
}
