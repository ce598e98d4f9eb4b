package rss

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: freeze the clock used for lastBuildDate
func freezeNow(t *testing.T, at time.Time) {
	t.Helper()
	old := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = old })
}

// TestRender_ExactLayout verifies the byte layout of a rendered feed
func TestRender_ExactLayout(t *testing.T) {
	out := Render(Params{
		Title:       "Blog",
		Description: "All posts",
		CurrentURL:  "https://feeds.example.com/source/blog",
		TargetURL:   "https://example.com/blog",
		Items: []Item{{
			Title:       "  Hello  ",
			Description: "\nFirst post\n",
			Link:        " https://example.com/hello ",
			PubDate:     "Tue, 05 Mar 2024 00:00:00 GMT",
		}},
	})

	want := `<?xml version="1.0" encoding="UTF-8" ?>
<rss xmlns:dc="http://purl.org/dc/elements/1.1/"
  xmlns:content="http://purl.org/rss/1.0/modules/content/"
  xmlns:atom="http://www.w3.org/2005/Atom"
  version="2.0">

  <channel>
    <title><![CDATA[Blog]]></title>
    <description><![CDATA[All posts]]></description>
    <link>https://example.com/blog</link>
    <atom:link href="https://feeds.example.com/source/blog" rel="alternate" type="application/rss+xml" />
    <generator>vkrae-rss-generator</generator>
    <lastBuildDate>Tue, 05 Mar 2024 00:00:00 GMT</lastBuildDate>
    
    <item>
      <title><![CDATA[Hello]]></title>
      <description><![CDATA[First post]]></description>
      <link>https://example.com/hello</link>
      <guid isPermaLink="true"> https://example.com/hello </guid>
      <pubDate>Tue, 05 Mar 2024 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	assert.Equal(t, want, out)
}

// TestRender_NoItems verifies lastBuildDate falls back to the current time
func TestRender_NoItems(t *testing.T) {
	freezeNow(t, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))

	out := Render(Params{Title: "Empty", CurrentURL: "http://x", TargetURL: "http://y"})

	assert.Contains(t, out, "<lastBuildDate>Sat, 01 Jun 2024 12:30:00 GMT</lastBuildDate>")
	assert.Contains(t, out, "<description><![CDATA[]]></description>")
	assert.NotContains(t, out, "<item>")
}

// TestRender_RoundTrip verifies the output parses as RSS with every item
func TestRender_RoundTrip(t *testing.T) {
	items := []Item{
		{Title: "One", Description: "<p>first</p>", Link: "https://example.com/1 ", PubDate: "Mon, 04 Mar 2024 00:00:00 GMT"},
		{Title: "Two & more", Description: "", Link: "https://example.com/2", PubDate: ""},
		{Title: "Three", Description: "third", Link: "\thttps://example.com/3", PubDate: "Wed, 06 Mar 2024 00:00:00 GMT"},
	}

	out := Render(Params{
		Title:      "Round trip",
		CurrentURL: "https://feeds.example.com/?a=1&b=2",
		TargetURL:  "https://example.com",
		Items:      items,
	})

	feed, err := gofeed.NewParser().ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, "rss", feed.FeedType)
	assert.Equal(t, "Round trip", feed.Title)
	require.Len(t, feed.Items, len(items))
	for i, item := range items {
		assert.Equal(t, strings.TrimSpace(item.Link), feed.Items[i].Link)
	}
	assert.Equal(t, "Two & more", feed.Items[1].Title)
	assert.Equal(t, "<p>first</p>", feed.Items[0].Description)
}

// TestRender_WellFormedXML verifies a strict XML decoder accepts the output
func TestRender_WellFormedXML(t *testing.T) {
	out := Render(Params{
		Title:      "Strict",
		CurrentURL: `https://feeds.example.com/?q="a"&r='b'<c>`,
		TargetURL:  "https://example.com",
		Items:      []Item{{Title: "t", Link: "https://example.com/t"}},
	})

	var doc struct {
		Channel struct {
			Items []struct {
				Link string `xml:"link"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Channel.Items, 1)
	assert.Equal(t, "https://example.com/t", doc.Channel.Items[0].Link)
}

// TestRender_EscapesCurrentURL verifies the atom link is escaped while CDATA
// sections are left alone
func TestRender_EscapesCurrentURL(t *testing.T) {
	out := Render(Params{
		Title:      "A & B",
		CurrentURL: "https://feeds.example.com/feed?url=a&b=c",
		TargetURL:  "https://example.com",
		Items:      []Item{{Title: "Tom & Jerry", Link: "https://example.com"}},
	})

	assert.Contains(t, out, `href="https://feeds.example.com/feed?url=a&amp;b=c"`)
	assert.Contains(t, out, "<![CDATA[A & B]]>")
	assert.Contains(t, out, "<![CDATA[Tom & Jerry]]>")
	assert.NotContains(t, out, "&amp;amp;")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&#039;", Escape(`&<>"'`))
	assert.Equal(t, "plain", Escape("plain"))
}
