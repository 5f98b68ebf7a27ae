package model

import (
	"strings"
	"time"
)

// ProxyRecord is a credentialed network egress endpoint shared by crawl runs.
// Records are owned by a proxy store and mutated only through a claim, which
// increments UsageCount and stamps LastClaimedAt in one atomic step.
type ProxyRecord struct {
	// Address identifies the proxy in "host:port" form.
	// A scheme prefix (e.g. "socks5://") is allowed and kept as-is.
	Address string `json:"address"`

	// Username and Password authenticate against the proxy.
	// Both may be empty for open proxies.
	Username string `json:"-"`
	Password string `json:"-"`

	// UsageCount is the number of successful claims so far.
	// It never decreases except through an explicit maintenance reset.
	UsageCount int64 `json:"usage_count"`

	// LastClaimedAt is nil when the proxy has never been claimed.
	// A nil value sorts older than any timestamp.
	LastClaimedAt *time.Time `json:"last_claimed_at,omitempty"`
}

// NewProxyRecord returns a never-claimed record.
func NewProxyRecord(address, username, password string) ProxyRecord {
	return ProxyRecord{
		Address:  address,
		Username: username,
		Password: password,
	}
}

// URL returns the proxy server URL handed to the browser.
// Credentials are never embedded; they are answered through the auth challenge.
func (p ProxyRecord) URL() string {
	if strings.Contains(p.Address, "://") {
		return p.Address
	}
	return "http://" + p.Address
}

// HasCredentials reports whether the proxy requires authentication.
func (p ProxyRecord) HasCredentials() bool {
	return p.Username != "" || p.Password != ""
}

// Redacted returns the address for log output, marking authenticated
// proxies without revealing the credentials.
func (p ProxyRecord) Redacted() string {
	if p.HasCredentials() {
		return p.Address + " (auth)"
	}
	return p.Address
}

// NeverClaimed reports whether the proxy has not been claimed yet.
func (p ProxyRecord) NeverClaimed() bool {
	return p.LastClaimedAt == nil
}

// ClaimedBefore reports whether p was last claimed strictly before other.
// Never-claimed records are older than any claimed record, and two
// never-claimed records are equally old.
func (p ProxyRecord) ClaimedBefore(other ProxyRecord) bool {
	switch {
	case p.LastClaimedAt == nil:
		return other.LastClaimedAt != nil
	case other.LastClaimedAt == nil:
		return false
	default:
		return p.LastClaimedAt.Before(*other.LastClaimedAt)
	}
}

// SameClaimTime reports whether both records carry the same last claim time.
func (p ProxyRecord) SameClaimTime(other ProxyRecord) bool {
	if p.LastClaimedAt == nil || other.LastClaimedAt == nil {
		return p.LastClaimedAt == nil && other.LastClaimedAt == nil
	}
	return p.LastClaimedAt.Equal(*other.LastClaimedAt)
}
