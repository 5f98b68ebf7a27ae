package proxy

import "errors"

// Proxy pool errors.
//
// Every error returned by Allocate wraps ErrNotFound: whatever the cause,
// there is nothing to crawl through. ErrContention and store failures are
// wrapped alongside it as the cause.
var (
	// ErrNotFound is returned when the pool is empty or a claimed address
	// no longer exists.
	ErrNotFound = errors.New("no proxy found")

	// ErrClaimConflict is returned by a Store when the record changed between
	// the read and the conditional claim. The allocator re-reads and retries.
	ErrClaimConflict = errors.New("proxy claim conflict")

	// ErrContention is the cause wrapped with ErrNotFound when every claim
	// attempt lost a race.
	ErrContention = errors.New("proxy pool contention: claim attempts exhausted")

	// ErrInvalidProxySpec is returned when a proxy list entry cannot be parsed.
	ErrInvalidProxySpec = errors.New("invalid proxy spec: expected host:port[:user[:pass]]")
)
