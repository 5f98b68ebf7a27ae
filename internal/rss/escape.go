package rss

import (
	"strings"
	"unicode/utf8"
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeText escapes the five reserved markup characters.
func escapeText(s string) string {
	return textEscaper.Replace(stripInvalid(s))
}

// cdata wraps s in a CDATA section. A literal "]]>" is split across two
// sections so the content round-trips unchanged.
func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(stripInvalid(s), "]]>", "]]]]><![CDATA[>") + "]]>"
}

// stripInvalid drops runes that may not appear in an XML 1.0 document,
// escaped or not.
func stripInvalid(s string) string {
	clean := true
	for _, r := range s {
		if !validXMLRune(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if validXMLRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validXMLRune(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
