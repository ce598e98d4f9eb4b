package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/discovery"
)

// isURL reports whether target should be downloaded rather than read from
// disk.
func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// loadDocument downloads target when it is a URL and reads it from disk
// otherwise. base, when set, overrides the document URL links are resolved
// against.
func loadDocument(ctx context.Context, cfg *config.Config, target, base string) (*goquery.Document, error) {
	var doc *goquery.Document
	if isURL(target) {
		fetcher := discovery.NewFetcher(cfg.Fetch.UserAgent, cfg.Fetch.Timeout)
		d, err := discovery.FetchDocument(ctx, fetcher, target)
		if err != nil {
			return nil, err
		}
		doc = d
	} else {
		data, err := os.ReadFile(target)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", target, err)
		}
		d, err := discovery.ParseHTML(string(data))
		if err != nil {
			return nil, err
		}
		doc = d
	}

	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
		}
		doc.Url = u
	}

	return doc, nil
}
