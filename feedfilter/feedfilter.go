// Package feedfilter removes items from a feed that also appear in a set of
// other feeds, such as the section feeds of a news site.
package feedfilter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/rss"
	"golang.org/x/sync/errgroup"
)

// ErrMissingFeedURL is returned for configs without a main feed.
var ErrMissingFeedURL = errors.New("feed url is required")

// Config describes a filtered feed.
type Config struct {
	// FeedURL is the feed whose items are kept.
	FeedURL string `json:"feed_url" yaml:"feed_url"`
	// ExcludeFeeds are feeds whose items are removed from the main feed.
	ExcludeFeeds []string `json:"exclude_feeds" yaml:"exclude_feeds"`
	// LinkPrefix limits the excluded links to those starting with it. Empty
	// excludes every link.
	LinkPrefix string `json:"link_prefix,omitempty" yaml:"link_prefix"`
}

// Validate checks that the config names a main feed.
func (c Config) Validate() error {
	if strings.TrimSpace(c.FeedURL) == "" {
		return ErrMissingFeedURL
	}
	return nil
}

// Fetcher downloads a feed.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, accept string) (*discovery.Page, error)
}

// Result is the filtered main feed.
type Result struct {
	Title       string
	Description string
	Link        string
	Items       []rss.Item
	// Dropped lists the links of the removed items in feed order.
	Dropped []string
}

// Params returns the render parameters of the result.
func (r *Result) Params(currentURL string) rss.Params {
	return rss.Params{
		Title:       r.Title,
		Description: r.Description,
		CurrentURL:  currentURL,
		TargetURL:   r.Link,
		Items:       r.Items,
	}
}

// Filter fetches and filters feeds.
type Filter struct {
	fetcher Fetcher
}

// New creates a filter that downloads feeds with f.
func New(f Fetcher) *Filter {
	return &Filter{fetcher: f}
}

// Run fetches the main feed and every exclude feed in parallel and returns
// the main feed without the items linked from the exclude feeds.
func (f *Filter) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var main *gofeed.Feed
	excluded := make([][]string, len(cfg.ExcludeFeeds))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feed, err := f.fetch(ctx, cfg.FeedURL)
		if err != nil {
			return err
		}
		main = feed
		return nil
	})
	for i, feedURL := range cfg.ExcludeFeeds {
		g.Go(func() error {
			feed, err := f.fetch(ctx, feedURL)
			if err != nil {
				return err
			}
			excluded[i] = Links(feed, cfg.LinkPrefix)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ignored := map[string]bool{}
	for _, links := range excluded {
		for _, link := range links {
			ignored[link] = true
		}
	}

	res := &Result{
		Title:       main.Title,
		Description: main.Description,
		Link:        main.Link,
		Items:       make([]rss.Item, 0, len(main.Items)),
	}
	if res.Link == "" {
		res.Link = cfg.FeedURL
	}

	for _, item := range main.Items {
		if ignored[item.Link] {
			res.Dropped = append(res.Dropped, item.Link)
			continue
		}
		res.Items = append(res.Items, ItemToRSS(item))
	}

	return res, nil
}

func (f *Filter) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	page, err := f.fetcher.Fetch(ctx, feedURL, discovery.AcceptRSS)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// Links returns the item links of feed that start with prefix.
func Links(feed *gofeed.Feed, prefix string) []string {
	var links []string
	for _, item := range feed.Items {
		if item.Link != "" && strings.HasPrefix(item.Link, prefix) {
			links = append(links, item.Link)
		}
	}
	return links
}

// ItemToRSS converts an RSS or Atom feed item to a feed item. gofeed
// normalizes both formats, so the same fields serve both.
func ItemToRSS(item *gofeed.Item) rss.Item {
	// Summary first, full content when there is none
	description := item.Description
	if description == "" {
		description = item.Content
	}

	var pubDate string
	switch {
	case item.PublishedParsed != nil:
		pubDate = item.PublishedParsed.UTC().Format(http.TimeFormat)
	case item.UpdatedParsed != nil:
		pubDate = item.UpdatedParsed.UTC().Format(http.TimeFormat)
	default:
		pubDate = item.Published
	}

	return rss.Item{
		Title:       item.Title,
		Description: description,
		Link:        item.Link,
		PubDate:     pubDate,
	}
}
