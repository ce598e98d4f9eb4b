// Package rss renders RSS 2.0 documents.
package rss

import (
	"net/http"
	"strings"
	"time"
)

// Generator is written to every channel.
const Generator = "vkrae-rss-generator"

// DateFormat is the layout of channel and item dates.
const DateFormat = http.TimeFormat

// Item is a single feed entry. Every field is written as-is, so unknown
// values must be empty strings.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate"`
}

// Params describes a channel.
type Params struct {
	Title       string
	Description string
	// CurrentURL is the address the feed itself is served from.
	CurrentURL string
	// TargetURL is the address of the page the feed describes.
	TargetURL string
	Items     []Item
}

// now is replaced in tests.
var now = time.Now

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape escapes the XML special characters of s for use in an attribute.
func Escape(s string) string {
	return attrEscaper.Replace(s)
}

// Render returns the RSS document for p. Titles and descriptions are
// wrapped in CDATA sections and are not escaped.
func Render(p Params) string {
	lastBuildDate := now().UTC().Format(DateFormat)
	if len(p.Items) > 0 {
		lastBuildDate = p.Items[0].PubDate
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>
<rss xmlns:dc="http://purl.org/dc/elements/1.1/"
  xmlns:content="http://purl.org/rss/1.0/modules/content/"
  xmlns:atom="http://www.w3.org/2005/Atom"
  version="2.0">

  <channel>
    <title><![CDATA[`)
	b.WriteString(p.Title)
	b.WriteString(`]]></title>
    <description><![CDATA[`)
	b.WriteString(p.Description)
	b.WriteString(`]]></description>
    <link>`)
	b.WriteString(p.TargetURL)
	b.WriteString(`</link>
    <atom:link href="`)
	b.WriteString(Escape(p.CurrentURL))
	b.WriteString(`" rel="alternate" type="application/rss+xml" />
    <generator>` + Generator + `</generator>
    <lastBuildDate>`)
	b.WriteString(lastBuildDate)
	b.WriteString("</lastBuildDate>\n    ")

	for i, item := range p.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		writeItem(&b, item)
	}

	b.WriteString(`
  </channel>
</rss>`)

	return b.String()
}

func writeItem(b *strings.Builder, item Item) {
	b.WriteString(`
    <item>
      <title><![CDATA[`)
	b.WriteString(strings.TrimSpace(item.Title))
	b.WriteString(`]]></title>
      <description><![CDATA[`)
	b.WriteString(strings.TrimSpace(item.Description))
	b.WriteString(`]]></description>
      <link>`)
	b.WriteString(strings.TrimSpace(item.Link))
	b.WriteString(`</link>
      <guid isPermaLink="true">`)
	b.WriteString(item.Link)
	b.WriteString(`</guid>
      <pubDate>`)
	b.WriteString(item.PubDate)
	b.WriteString(`</pubDate>
    </item>`)
}
