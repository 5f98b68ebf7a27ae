package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// DefaultSearchTemplate expands a keyword target into a live search URL.
const DefaultSearchTemplate = "https://x.com/search?q=%s&src=typed_query&f=live"

// Target is one page to crawl.
type Target struct {
	// Name is what the user asked for: a keyword or a URL.
	Name string

	// URL is the page the browser opens.
	URL string
}

// NewTarget resolves raw into a Target.
// An http(s) URL is used as-is. Anything else is treated as a search keyword
// and substituted, query-escaped, for %s in searchTemplate.
func NewTarget(raw, searchTemplate string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return Target{}, fmt.Errorf("%w: %q is not a valid URL", ErrInvalidTarget, raw)
		}
		return Target{Name: raw, URL: u.String()}, nil
	}

	if searchTemplate == "" {
		searchTemplate = DefaultSearchTemplate
	}
	if !strings.Contains(searchTemplate, "%s") {
		return Target{}, fmt.Errorf("%w: search template %q has no %%s placeholder", ErrInvalidTarget, searchTemplate)
	}

	return Target{
		Name: raw,
		URL:  strings.ReplaceAll(searchTemplate, "%s", url.QueryEscape(raw)),
	}, nil
}

// String returns the target name.
func (t Target) String() string {
	return t.Name
}

// Slug returns a filename-safe form of the target name.
// URLs are reduced to host and path first.
func (t Target) Slug() string {
	name := t.Name
	if u, err := url.Parse(name); err == nil && u.Host != "" {
		name = u.Host + u.Path
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "feed"
	}
	return slug
}
