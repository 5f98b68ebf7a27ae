package rss

import "errors"

var (
	// ErrCorruptDocument means the file does not end with the closing suffix
	// or cannot be parsed as an RSS document.
	ErrCorruptDocument = errors.New("corrupt rss document")

	// ErrDocumentExists is returned by Create when the file already exists.
	ErrDocumentExists = errors.New("rss document already exists")
)
