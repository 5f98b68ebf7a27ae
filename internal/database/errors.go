package database

import "errors"

// ErrRunNotFound is returned when a crawl run ID does not exist.
var ErrRunNotFound = errors.New("crawl run not found")
