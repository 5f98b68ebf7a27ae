// Package rss writes the RSS 2.0 document a crawl session appends to.
//
// The document is rewritten as a whole on every Append: the closing
// "</channel></rss>" suffix is dropped, new items are added, the suffix is
// restored, and the result replaces the old file atomically. Readers and
// crashed processes therefore only ever see complete documents.
package rss
