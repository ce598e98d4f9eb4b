package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pevans/rssgen/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: write a listing page with three posts
func writeListing(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<html><head><title>Listing</title></head><body><main>`)
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, `<article class="post"><h2>Post %d</h2><a href="/posts/%d">Read</a><p class="date">March %d, 2024</p></article>`, i, i, i)
	}
	b.WriteString(`</main><footer>Footer</footer></body></html>`)

	path := filepath.Join(t.TempDir(), "listing.html")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// Test helper: write a config file pointing the registry at a temp dir
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`sources_db: %s
cache:
  type: file
  dsn: %s
`, filepath.Join(dir, "sources.db"), filepath.Join(dir, "cache"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// Test helper: run the CLI and return its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInfer(t *testing.T) {
	page := writeListing(t)

	out, err := run(t, "infer", page, "--candidates")
	require.NoError(t, err)

	var result inferOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ARTICLE.post", result.Selectors.Item)
	assert.Equal(t, "H2", result.Selectors.Heading)
	assert.Len(t, result.Posts, 3)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 3, result.Candidates[0].Siblings)
}

func TestInfer_Table(t *testing.T) {
	page := writeListing(t)

	out, err := run(t, "infer", page, "--format", "table", "--candidates")
	require.NoError(t, err)
	assert.Contains(t, out, "Item:        ARTICLE.post")
	assert.Contains(t, out, "3 posts")
	assert.Contains(t, out, "SIBLINGS")

	_, err = run(t, "infer", page, "--format", "yaml")
	assert.Error(t, err)
}

func TestInfer_Errors(t *testing.T) {
	_, err := run(t, "infer", filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)

	_, err = run(t, "infer")
	assert.Error(t, err)
}

func TestFeed(t *testing.T) {
	page := writeListing(t)

	out, err := run(t, "feed", page, "--base", "https://example.com/blog", "--self", "https://feeds.example.com/x")
	require.NoError(t, err)
	assert.Contains(t, out, `<atom:link href="https://feeds.example.com/x"`)
	assert.Contains(t, out, "<link>https://example.com/posts/2</link>")
	assert.Contains(t, out, "<pubDate>Sun, 03 Mar 2024 00:00:00 GMT</pubDate>")
}

func TestPreview(t *testing.T) {
	page := writeListing(t)

	out, err := run(t, "preview", page)
	require.NoError(t, err)
	assert.Contains(t, out, "Post 1")
	assert.NotContains(t, out, "Footer")
}

func TestSources(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sources configured.")

	_, err = run(t, "--config", cfgPath, "sources", "show", "missing.example.com")
	assert.ErrorIs(t, err, sources.ErrSourceNotFound)
}
