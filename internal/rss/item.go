package rss

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/feedrover/internal/model"
)

// MaxTitleRunes is the display length of an item title before truncation.
const MaxTitleRunes = 100

// Namespace is the XML namespace of the engagement counter elements.
const Namespace = "https://github.com/nao1215/feedrover/ns/1.0"

// itemTitle derives the item title from the post text.
func itemTitle(r model.FeedRecord) string {
	title := norm.NFC.String(strings.Join(strings.Fields(r.Text), " "))
	if title == "" {
		if handle := trimHandle(r.AuthorHandle); handle != "" {
			return "Post by @" + handle
		}
		return "Post"
	}

	runes := []rune(title)
	if len(runes) <= MaxTitleRunes {
		return title
	}
	return strings.TrimRight(string(runes[:MaxTitleRunes]), " ") + "…"
}

// itemAuthor formats "@handle (Name)", dropping whichever part is missing.
func itemAuthor(r model.FeedRecord) string {
	handle := trimHandle(r.AuthorHandle)
	name := strings.TrimSpace(r.AuthorName)

	switch {
	case handle != "" && name != "":
		return "@" + handle + " (" + name + ")"
	case handle != "":
		return "@" + handle
	default:
		return name
	}
}

func trimHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// writeItem serializes one record. Element order is fixed.
func writeItem(b *strings.Builder, r model.FeedRecord, fallbackDate time.Time) {
	published := r.PublishedAt
	if published.IsZero() {
		published = fallbackDate
	}

	b.WriteString("<item>\n")
	element(b, "title", itemTitle(r))
	element(b, "link", r.URL)
	b.WriteString("<description>" + cdata(r.Text) + "</description>\n")
	element(b, "author", itemAuthor(r))
	element(b, "pubDate", published.Format(time.RFC1123Z))
	b.WriteString(`<guid isPermaLink="true">` + escapeText(r.URL) + "</guid>\n")
	element(b, "feedrover:replies", r.Replies)
	element(b, "feedrover:reposts", r.Reposts)
	element(b, "feedrover:likes", r.Likes)
	element(b, "feedrover:views", r.Views)
	b.WriteString("</item>\n")
}

func element(b *strings.Builder, name, text string) {
	b.WriteString("<" + name + ">")
	b.WriteString(escapeText(text))
	b.WriteString("</" + name + ">\n")
}
