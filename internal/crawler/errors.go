package crawler

import "errors"

// Session errors. A Result's Err wraps exactly one of these (or a context
// error for cancellation) around the underlying cause.
var (
	// ErrNoProxyAvailable means the proxy pool could not provide a proxy.
	ErrNoProxyAvailable = errors.New("no proxy available")

	// ErrNavigationTimeout means the target page could not be opened.
	ErrNavigationTimeout = errors.New("navigation failed")

	// ErrExtractionFailure means a round could not read records from the page.
	// It is logged and the round counts as empty; it never ends a session.
	ErrExtractionFailure = errors.New("extraction failed")

	// ErrPersistFailure means the output document could not be updated.
	ErrPersistFailure = errors.New("persist failed")

	// ErrNoProgress means too many consecutive rounds produced no new records.
	ErrNoProgress = errors.New("no progress")

	// ErrSessionFault means the crawl loop panicked.
	ErrSessionFault = errors.New("session fault")

	// ErrInvalidTarget means a target could not be resolved to a URL.
	ErrInvalidTarget = errors.New("invalid target")
)
