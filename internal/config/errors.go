package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoTarget is returned when no keyword or URL is given.
	ErrNoTarget = errors.New("no target specified: provide a keyword or URL")

	// ErrInvalidQuota is returned when the quota is not positive.
	ErrInvalidQuota = errors.New("invalid quota: must be positive")

	// ErrInvalidThreshold is returned when the empty round threshold is not positive.
	// A threshold of zero would abort before the first round.
	ErrInvalidThreshold = errors.New("invalid empty round threshold: must be positive")

	// ErrInvalidPacing is returned when the pacing bounds are negative or reversed.
	ErrInvalidPacing = errors.New("invalid pacing: need 0 <= min <= max")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid navigation timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidScrollFactor is returned when the scroll factor is not positive.
	ErrInvalidScrollFactor = errors.New("invalid scroll factor: must be positive")

	// ErrInvalidLogFormat is returned for an unknown --log-format value.
	ErrInvalidLogFormat = errors.New("invalid log format: use auto, text or json")
)
