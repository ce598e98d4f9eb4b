// Package stream turns a listing page into feed items using configured
// selectors. The page is walked once in document order and every element
// start and text node is fed to a small state machine, so no selector is
// evaluated against the whole document more than once.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/rss"
	"github.com/pevans/rssgen/scraper"
	"golang.org/x/net/html"
)

// ErrMissingItemSelector is returned for configs without an item selector.
var ErrMissingItemSelector = errors.New("item selector is required")

// Fetcher downloads a page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, accept string) (*discovery.Page, error)
}

// Result is the channel metadata and items found on a page.
type Result struct {
	Title       string
	Description string
	Items       []rss.Item
}

// Params returns the render parameters of the result.
func (r *Result) Params(currentURL, targetURL string) rss.Params {
	return rss.Params{
		Title:       r.Title,
		Description: r.Description,
		CurrentURL:  currentURL,
		TargetURL:   targetURL,
		Items:       r.Items,
	}
}

// Fetch downloads the page of cfg and extracts its items. Relative links are
// resolved against the URL the page was served from.
func Fetch(ctx context.Context, f Fetcher, cfg scraper.Config) (*Result, error) {
	if cfg.URL == "" {
		return nil, errors.New("source url is required")
	}

	page, err := f.Fetch(ctx, cfg.URL, discovery.AcceptHTML)
	if err != nil {
		return nil, err
	}

	base := page.URL
	if base == nil {
		base, err = url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse source url: %w", err)
		}
	}

	return Extract(bytes.NewReader(page.Body), cfg, base)
}

// Extract reads an HTML page from r and returns its title, meta description
// and one item per element matching the item selector. base may be nil, in
// which case links are returned as written.
func Extract(r io.Reader, cfg scraper.Config, base *url.URL) (*Result, error) {
	m, err := compileMatchers(cfg)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	mc := &machine{matchers: m, base: base}
	walk(root, 0, mc)
	mc.finish()

	return &Result{
		Title:       mc.title.String(),
		Description: mc.description.String(),
		Items:       mc.items,
	}, nil
}

// scope records which text-collecting matchers an element or one of its
// ancestors matched.
type scope uint8

const (
	inTitle scope = 1 << iota
	inHeading
	inDescription
	inDate
)

type matchers struct {
	title       cascadia.Selector
	meta        cascadia.Selector
	item        cascadia.Selector
	link        cascadia.Selector
	heading     cascadia.Selector
	description cascadia.Selector
	date        cascadia.Selector
}

var (
	titleSelector = cascadia.MustCompile("head title")
	metaSelector  = cascadia.MustCompile(`head meta[name="description"]`)
)

func compileMatchers(cfg scraper.Config) (*matchers, error) {
	if strings.TrimSpace(cfg.ItemSelector) == "" {
		return nil, ErrMissingItemSelector
	}

	item, err := cascadia.Compile(cfg.ItemSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid item selector %q: %w", cfg.ItemSelector, err)
	}

	m := &matchers{title: titleSelector, meta: metaSelector, item: item}

	fields := []struct {
		name     string
		selector string
		dst      *cascadia.Selector
	}{
		{"link", cfg.LinkSelector, &m.link},
		{"heading", cfg.HeadingSelector, &m.heading},
		{"description", cfg.DescriptionSelector, &m.description},
		{"date", cfg.DateSelector, &m.date},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.selector) == "" {
			continue
		}
		sel, err := cascadia.Compile(cfg.ItemSelector + " " + f.selector)
		if err != nil {
			return nil, fmt.Errorf("invalid %s selector %q: %w", f.name, f.selector, err)
		}
		*f.dst = sel
	}

	return m, nil
}

// walk emits the events of n and its descendants in document order.
func walk(n *html.Node, parent scope, mc *machine) {
	switch n.Type {
	case html.ElementNode:
		parent |= mc.element(n)
	case html.TextNode:
		mc.text(n.Data, parent)
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, parent, mc)
	}
}

type state int

const (
	awaitingItem state = iota
	inItem
)

// item accumulates the fields of the item being read.
type item struct {
	title       strings.Builder
	description strings.Builder
	link        string
	date        strings.Builder
}

type machine struct {
	matchers *matchers
	base     *url.URL

	state   state
	current *item
	items   []rss.Item

	title       strings.Builder
	description strings.Builder
}

// element handles an element start and returns the scopes it opens.
func (mc *machine) element(n *html.Node) scope {
	var s scope
	m := mc.matchers

	if m.title.Match(n) {
		s |= inTitle
	}
	if m.meta.Match(n) {
		if content, ok := discovery.Attr(n, "content"); ok {
			mc.description.WriteString(content)
		}
	}

	if m.item.Match(n) {
		mc.finish()
		mc.state = inItem
		mc.current = &item{}
	}

	if mc.state != inItem {
		return s
	}

	if m.link != nil && m.link.Match(n) {
		href, _ := discovery.Attr(n, "href")
		mc.current.link = mc.resolve(href)
	}
	if m.heading != nil && m.heading.Match(n) {
		s |= inHeading
	}
	if m.description != nil && m.description.Match(n) {
		s |= inDescription
	}
	if m.date != nil && m.date.Match(n) {
		s |= inDate
	}

	return s
}

// text handles a text node inside the given scopes.
func (mc *machine) text(data string, s scope) {
	if s&inTitle != 0 {
		mc.title.WriteString(data)
	}
	if mc.state != inItem {
		return
	}
	if s&inHeading != 0 {
		mc.current.title.WriteString(data)
	}
	if s&inDescription != 0 {
		mc.current.description.WriteString(data)
	}
	if s&inDate != 0 {
		mc.current.date.WriteString(data)
	}
}

// finish appends the item being read, if any.
func (mc *machine) finish() {
	if mc.state != inItem {
		return
	}

	cur := mc.current
	pubDate, ok := discovery.ResolveDate(cur.date.String())
	if !ok {
		pubDate = ""
	}

	mc.items = append(mc.items, rss.Item{
		Title:       cur.title.String(),
		Description: cur.description.String(),
		Link:        cur.link,
		PubDate:     pubDate,
	})

	mc.state = awaitingItem
	mc.current = nil
}

func (mc *machine) resolve(href string) string {
	if href == "" || mc.base == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return mc.base.ResolveReference(ref).String()
}
