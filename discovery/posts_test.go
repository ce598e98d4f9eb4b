package discovery

import (
	"strings"
	"testing"
	"time"

	"github.com/pevans/rssgen/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body><main>
	<div class="entry">
		<h2> First   post </h2>
		<a class="more" href="/first">more</a>
		<span class="when">March 5, 2024</span>
		<p class="teaser">Intro <b>one</b></p>
	</div>
	<div class="entry">
		<h2>Second post</h2>
		<a class="more">no href</a>
		<span class="when">not a date</span>
	</div>
</main></body></html>`

// TestExtractPosts_AllFields verifies every field is resolved per item
func TestExtractPosts_AllFields(t *testing.T) {
	doc := mustParse(t, listingHTML)

	posts := ExtractPosts(doc, scraper.Selectors{
		Item:        "DIV.entry",
		Anchor:      "A.more",
		Heading:     "H2",
		Date:        "SPAN.when",
		Description: "P.teaser",
	})
	require.Len(t, posts, 2)

	first := posts[0]
	require.NotNil(t, first.Heading)
	assert.Equal(t, "First post", *first.Heading)
	require.NotNil(t, first.URL)
	assert.Equal(t, "/first", *first.URL)
	require.NotNil(t, first.Date)
	assert.Contains(t, *first.Date, "05 Mar 2024")
	require.NotNil(t, first.Description)
	assert.Equal(t, "Intro one", *first.Description)

	second := posts[1]
	require.NotNil(t, second.Heading)
	assert.Equal(t, "Second post", *second.Heading)
	assert.Nil(t, second.URL, "anchor without href")
	assert.Nil(t, second.Date, "unparseable date")
	assert.Nil(t, second.Description, "no matching element")
}

// TestExtractPosts_NilDocument verifies a missing document yields no posts
func TestExtractPosts_NilDocument(t *testing.T) {
	posts := ExtractPosts(nil, scraper.Selectors{Item: "DIV"})
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

// TestExtractPosts_InvalidItemSelector verifies a bad item selector yields
// no posts instead of an error
func TestExtractPosts_InvalidItemSelector(t *testing.T) {
	doc := mustParse(t, listingHTML)

	posts := ExtractPosts(doc, scraper.Selectors{Item: "DIV.entry[[", Heading: "H2"})
	assert.Empty(t, posts)
}

// TestExtractPosts_InvalidFieldSelector verifies a bad field selector only
// empties that field
func TestExtractPosts_InvalidFieldSelector(t *testing.T) {
	doc := mustParse(t, listingHTML)

	posts := ExtractPosts(doc, scraper.Selectors{
		Item:    "DIV.entry",
		Heading: "H2:::",
		Anchor:  "A",
	})
	require.Len(t, posts, 2)
	assert.Nil(t, posts[0].Heading)
	require.NotNil(t, posts[0].URL)
	assert.Equal(t, "/first", *posts[0].URL)
}

// TestExtractPosts_NoMatches verifies zero matches is an empty result
func TestExtractPosts_NoMatches(t *testing.T) {
	doc := mustParse(t, listingHTML)

	posts := ExtractPosts(doc, scraper.Selectors{Item: "ARTICLE"})
	assert.Empty(t, posts)
}

// TestExtractPosts_EmptySelectors verifies optional selectors leave fields
// unset
func TestExtractPosts_EmptySelectors(t *testing.T) {
	doc := mustParse(t, listingHTML)

	posts := ExtractPosts(doc, scraper.Selectors{Item: "DIV.entry"})
	require.Len(t, posts, 2)
	assert.Equal(t, Post{}, posts[0])
}

func TestResolveDate(t *testing.T) {
	plus5 := time.FixedZone("PLUS5", 5*60*60)

	tests := []struct {
		name string
		text string
		loc  *time.Location
		want string
		ok   bool
	}{
		{"date only in UTC", "March 5, 2024", time.UTC, "Tue, 05 Mar 2024 00:00:00 GMT", true},
		{"date only keeps wall clock", "March 5, 2024", plus5, "Tue, 05 Mar 2024 00:00:00 GMT", true},
		{"iso date", " 2023-11-20 ", time.UTC, "Mon, 20 Nov 2023 00:00:00 GMT", true},
		{"explicit offset is shifted by local zone", "2024-03-05T10:00:00Z", plus5, "Tue, 05 Mar 2024 15:00:00 GMT", true},
		{"garbage", "not a date", time.UTC, "", false},
		{"empty", "   ", time.UTC, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveDateIn(tt.text, tt.loc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestResolveDate_LocalZone verifies the exported form produces a GMT date
func TestResolveDate_LocalZone(t *testing.T) {
	got, ok := ResolveDate("March 5, 2024")
	require.True(t, ok)

	assert.True(t, strings.HasSuffix(got, " GMT"))
	parsed, err := time.Parse(time.RFC1123, got)
	require.NoError(t, err)
	assert.Equal(t, 5, parsed.Day())
	assert.Equal(t, 0, parsed.Hour())
}
