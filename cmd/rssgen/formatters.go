package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pevans/rssgen"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/scraper"
	"github.com/pevans/rssgen/sources"
)

// printJSON prints v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

// truncate shortens s to at most n characters for display
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func printSelectors(w io.Writer, s scraper.Selectors) {
	fmt.Fprintf(w, "Item:        %s\n", s.Item)
	fmt.Fprintf(w, "Anchor:      %s\n", orDash(&s.Anchor))
	fmt.Fprintf(w, "Heading:     %s\n", orDash(&s.Heading))
	fmt.Fprintf(w, "Date:        %s\n", orDash(&s.Date))
	fmt.Fprintf(w, "Description: %s\n", orDash(&s.Description))
	fmt.Fprintln(w)
}

// printPosts prints posts in human-readable format
func printPosts(w io.Writer, posts []discovery.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts found.")
		return
	}

	fmt.Fprintf(w, "%d posts\n\n", len(posts))
	for _, p := range posts {
		fmt.Fprintf(w, "  %s\n", truncate(orDash(p.Heading), 70))
		fmt.Fprintf(w, "     Date: %s\n", orDash(p.Date))
		fmt.Fprintf(w, "     URL:  %s\n", orDash(p.URL))
	}
	fmt.Fprintln(w)
}

// printCandidatesTable prints candidates in table format
func printCandidatesTable(w io.Writer, candidates []rssgen.CandidateResponse) {
	fmt.Fprintf(w, "%-40s %-8s %-5s %-20s %-20s %s\n", "ITEM", "SIBLINGS", "SCORE", "ANCHOR", "HEADING", "DATE")
	fmt.Fprintln(w, "----------------------------------------------------------------------------------------------------")

	for _, c := range candidates {
		fmt.Fprintf(w, "%-40s %-8d %-5d %-20s %-20s %s\n",
			truncate(c.ItemSelector, 40),
			c.Siblings,
			c.Score,
			truncate(orDash(&c.Anchor), 20),
			truncate(orDash(&c.Heading), 20),
			orDash(&c.Date),
		)
	}
}

// printSourcesTable prints registry sources in table format
func printSourcesTable(w io.Writer, sourceList []sources.Source) {
	if len(sourceList) == 0 {
		fmt.Fprintln(w, "No sources configured.")
		return
	}

	fmt.Fprintf(w, "%-30s %-12s %-8s %s\n", "SLUG", "KIND", "ENABLED", "URL")
	fmt.Fprintln(w, "----------------------------------------------------------------------------------------------------")

	for _, source := range sourceList {
		enabled := "no"
		if source.IsEnabled() {
			enabled = "yes"
		}
		fmt.Fprintf(w, "%-30s %-12s %-8s %s\n",
			truncate(source.Slug, 30),
			source.Kind,
			enabled,
			truncate(source.URL, 60),
		)
	}
}
