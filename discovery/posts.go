package discovery

import (
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/pevans/rssgen/scraper"
	"golang.org/x/net/html"
)

// Post is a single entry extracted from a listing page. A nil field was not
// found.
type Post struct {
	Heading     *string `json:"heading,omitempty"`
	URL         *string `json:"url,omitempty"`
	Date        *string `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ExtractPosts returns one post per element matching the item selector. It
// never fails: an invalid item selector yields no posts and an invalid field
// selector leaves that field empty.
func ExtractPosts(doc *goquery.Document, selectors scraper.Selectors) []Post {
	posts := []Post{}
	if doc == nil {
		return posts
	}

	item, err := compile(selectors.Item)
	if err != nil {
		return posts
	}

	doc.FindMatcher(item).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		posts = append(posts, Post{
			Heading:     elementText(n, selectors.Heading),
			URL:         link(n, selectors.Anchor),
			Date:        date(n, selectors.Date),
			Description: elementText(n, selectors.Description),
		})
	})

	return posts
}

// ResolveDate parses free-form date text and returns it as an HTTP style GMT
// date. The wall clock of the parsed date is kept as-is, so "March 5, 2024"
// becomes "Tue, 05 Mar 2024 00:00:00 GMT" in every time zone. Unparseable
// text returns false.
func ResolveDate(text string) (string, bool) {
	return resolveDateIn(text, time.Local)
}

func resolveDateIn(text string, loc *time.Location) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	t, err := dateparse.ParseIn(text, loc)
	if err != nil {
		return "", false
	}

	_, offset := t.In(loc).Zone()
	return t.Add(time.Duration(offset) * time.Second).UTC().Format(http.TimeFormat), true
}

// elementText returns the text of the first descendant of n matching
// selector.
func elementText(n *html.Node, selector string) *string {
	if selector == "" {
		return nil
	}

	found, err := queryFirst(n, selector)
	if err != nil || found == nil {
		return nil
	}

	text := InnerText(found)
	return &text
}

// link returns the href of the first descendant of n matching selector.
func link(n *html.Node, selector string) *string {
	if selector == "" {
		return nil
	}

	found, err := queryFirst(n, selector)
	if err != nil || found == nil {
		return nil
	}

	href, ok := Attr(found, "href")
	if !ok {
		return nil
	}
	return &href
}

// date returns the normalized date of the first descendant of n matching
// selector.
func date(n *html.Node, selector string) *string {
	text := elementText(n, selector)
	if text == nil {
		return nil
	}

	resolved, ok := ResolveDate(*text)
	if !ok {
		return nil
	}
	return &resolved
}
