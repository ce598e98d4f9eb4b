package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Accept headers used when fetching pages and feeds.
const (
	AcceptHTML = "text/html"
	AcceptRSS  = "application/rss+xml"
)

// DefaultUserAgent identifies rssgen to the sites it fetches.
const DefaultUserAgent = "rssgen/1.0 (+html-to-rss)"

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// Fetcher downloads pages and feeds.
type Fetcher struct {
	UserAgent string
	Timeout   time.Duration
}

// NewFetcher creates a fetcher. Zero values fall back to the defaults.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{UserAgent: userAgent, Timeout: timeout}
}

// FetchError reports a download that failed or returned a non-2xx status.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Page is a fetched response body and the URL it was finally served from.
type Page struct {
	URL  *url.URL
	Body []byte
}

// Fetch downloads rawURL with the given Accept header. Failed downloads and
// responses other than 2xx return a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, accept string) (*Page, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", accept)
	})

	var page *Page
	c.OnResponse(func(r *colly.Response) {
		page = &Page{URL: r.Request.URL, Body: r.Body}
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if page == nil {
		return nil, &FetchError{URL: rawURL, Err: errors.New("no response")}
	}

	return page, nil
}

// PageFetcher downloads pages. *Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL, accept string) (*Page, error)
}

// FetchDocument downloads and parses an HTML page. The document's Url is the
// URL the page was served from.
func FetchDocument(ctx context.Context, f PageFetcher, rawURL string) (*goquery.Document, error) {
	page, err := f.Fetch(ctx, rawURL, AcceptHTML)
	if err != nil {
		return nil, err
	}

	doc, err := NewDocument(bytes.NewReader(page.Body))
	if err != nil {
		return nil, err
	}
	doc.Url = page.URL

	return doc, nil
}
