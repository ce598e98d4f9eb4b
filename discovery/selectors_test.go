package discovery

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: parse an HTML string
func mustParse(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := ParseHTML(raw)
	require.NoError(t, err)
	return doc
}

// Test helper: a listing page with n article.post elements
func articleListing(n int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Blog</title><script>var x = 1;</script></head><body>`)
	b.WriteString(`<header><span class="logo">Blog</span></header><main>`)
	for i := 0; i < n; i++ {
		b.WriteString(`<article class="post"><h2>Post title</h2>`)
		b.WriteString(`<a href="/posts/` + string(rune('a'+i)) + `">Read more</a>`)
		b.WriteString(`<p class="date">March 5, 2024</p></article>`)
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}

// TestInferSelectors_ArticleListing verifies the canonical listing scenario
func TestInferSelectors_ArticleListing(t *testing.T) {
	doc := mustParse(t, articleListing(5))

	selectors, err := InferSelectors(doc)
	require.NoError(t, err)

	assert.Equal(t, "ARTICLE.post", selectors.Item)
	assert.Equal(t, "A", selectors.Anchor)
	assert.Equal(t, "H2", selectors.Heading)
	assert.Equal(t, "P.date", selectors.Date)
	assert.Empty(t, selectors.Description, "description is never inferred")

	candidates := Candidates(doc)
	require.Len(t, candidates, 1)
	assert.Equal(t, 5, candidates[0].Siblings)
	assert.Equal(t, 5, candidates[0].Score, "largest sibling count plus anchor")
}

// TestInferSelectors_Idempotent verifies repeated inference is stable
func TestInferSelectors_Idempotent(t *testing.T) {
	doc := mustParse(t, `<body>
		<ul><li class="x"><a href="/1">1</a></li><li class="x"><a href="/2">2</a></li></ul>
		<div class="card"><h3>a</h3></div><div class="card"><h3>b</h3></div>
	</body>`)

	first, err := InferSelectors(doc)
	require.NoError(t, err)
	second, err := InferSelectors(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestInferSelectors_ExtractionConsistency verifies the inferred item
// selector matches every member of the winning group
func TestInferSelectors_ExtractionConsistency(t *testing.T) {
	doc := mustParse(t, articleListing(7))

	selectors, err := InferSelectors(doc)
	require.NoError(t, err)

	posts := ExtractPosts(doc, selectors)
	assert.Len(t, posts, 7)
}

// TestInferSelectors_NoCandidate verifies the distinct failure when nothing
// repeats among siblings
func TestInferSelectors_NoCandidate(t *testing.T) {
	doc := mustParse(t, `<body><div><p>one</p><span>two</span></div></body>`)

	_, err := InferSelectors(doc)
	assert.ErrorIs(t, err, ErrNoCandidateFound)
}

// TestInferSelectors_SkipsScriptsLinksAndNav verifies excluded elements and
// their subtrees are never candidates
func TestInferSelectors_SkipsScriptsLinksAndNav(t *testing.T) {
	doc := mustParse(t, `<body>
		<script></script><script></script>
		<nav><a href="/a">a</a><a href="/b">b</a></nav>
		<nav></nav>
		<link rel="x"><link rel="y">
		<div>only</div>
	</body>`)

	_, err := InferSelectors(doc)
	assert.ErrorIs(t, err, ErrNoCandidateFound)
}

// TestInferSelectors_PrefersMain verifies repeated structure outside <main>
// is ignored when <main> exists
func TestInferSelectors_PrefersMain(t *testing.T) {
	doc := mustParse(t, `<body>
		<aside><p class="ad">1</p><p class="ad">2</p><p class="ad">3</p></aside>
		<main><section><a href="/1">1</a></section><section><a href="/2">2</a></section></main>
	</body>`)

	selectors, err := InferSelectors(doc)
	require.NoError(t, err)

	assert.Equal(t, "SECTION", selectors.Item)
	assert.Equal(t, "A", selectors.Anchor)
}

// TestInferSelectors_RankAndAnchor verifies the second largest group wins
// when only it has links
func TestInferSelectors_RankAndAnchor(t *testing.T) {
	doc := mustParse(t, `<body>
		<div class="tags"><span>a</span><span>b</span><span>c</span><span>d</span><span>e</span></div>
		<div class="list">
			<div class="item"><a href="/1">1</a></div>
			<div class="item"><a href="/2">2</a></div>
			<div class="item"><a href="/3">3</a></div>
		</div>
		<div class="pair"><i>x</i><i>y</i></div>
	</body>`)

	candidates := Candidates(doc)
	require.Len(t, candidates, 3)

	assert.Equal(t, "SPAN", candidates[0].ItemSelector)
	assert.Equal(t, 2, candidates[0].Score, "largest sibling count")
	assert.Equal(t, "DIV.item", candidates[1].ItemSelector)
	assert.Equal(t, 4, candidates[1].Score, "second largest count plus anchor")
	assert.Equal(t, "I", candidates[2].ItemSelector)
	assert.Equal(t, 0, candidates[2].Score, "third largest count scores nothing")

	selectors, err := InferSelectors(doc)
	require.NoError(t, err)
	assert.Equal(t, "DIV.item", selectors.Item)
	assert.Equal(t, "A", selectors.Anchor)
}

// TestInferSelectors_HeadingAndDateDoNotScore verifies heading and date
// presence leave the score unchanged
func TestInferSelectors_HeadingAndDateDoNotScore(t *testing.T) {
	doc := mustParse(t, `<body>
		<div class="a"><p>plain</p><p>plain</p></div>
		<div class="b">
			<section><h1>Title</h1><time>2024-01-02</time></section>
			<section><h1>Title</h1><time>2024-01-03</time></section>
		</div>
	</body>`)

	candidates := Candidates(doc)
	require.Len(t, candidates, 2)
	assert.Equal(t, "P", candidates[0].ItemSelector)
	assert.Equal(t, "SECTION", candidates[1].ItemSelector)
	assert.NotNil(t, candidates[1].Heading)
	assert.NotNil(t, candidates[1].Date)
	assert.Equal(t, candidates[0].Score, candidates[1].Score)

	selectors, err := InferSelectors(doc)
	require.NoError(t, err)
	assert.Equal(t, "P", selectors.Item, "ties go to the first candidate")
	assert.Empty(t, selectors.Heading)
}

// TestCandidates_TraversalOrder verifies parents are grouped before their
// descendants and keys keep first-seen order
func TestCandidates_TraversalOrder(t *testing.T) {
	doc := mustParse(t, `<body>
		<ul><li>a</li><li>b</li></ul>
		<p>x</p>
		<ul><li>c</li><li>d</li><li>e</li></ul>
		<p>y</p>
	</body>`)

	var keys []string
	for _, c := range Candidates(doc) {
		keys = append(keys, c.ItemSelector)
	}

	assert.Equal(t, []string{"UL", "P", "LI", "LI"}, keys)
}

// TestCandidates_GroupingByClassList verifies identical tag and ordered
// class list always share a key
func TestCandidates_GroupingByClassList(t *testing.T) {
	doc := mustParse(t, `<body>
		<div class="card big">1</div>
		<div class="card  big card">2</div>
		<div class="big card">3</div>
	</body>`)

	candidates := Candidates(doc)
	require.Len(t, candidates, 1)
	assert.Equal(t, "DIV.card.big", candidates[0].ItemSelector)
	assert.Equal(t, 2, candidates[0].Siblings)
}

func TestFindAnchor(t *testing.T) {
	doc := mustParse(t, `<body>
		<a id="self" href="/x"><span>x</span></a>
		<div id="nested"><span><a id="inner" href="/y">y</a></span><a href="/z">z</a></div>
		<div id="none"><span>no link</span></div>
	</body>`)

	self := doc.Find("#self").Get(0)
	assert.Same(t, self, findAnchor(self))

	nested := doc.Find("#nested").Get(0)
	assert.Same(t, doc.Find("#inner").Get(0), findAnchor(nested))

	assert.Nil(t, findAnchor(doc.Find("#none").Get(0)))
}

// TestFindHeading_Priority verifies h1 wins over an earlier h3
func TestFindHeading_Priority(t *testing.T) {
	doc := mustParse(t, `<body><div id="d"><h3>three</h3><div><h1 id="one">one</h1></div></div></body>`)

	heading := findHeading(doc.Find("#d").Get(0))
	require.NotNil(t, heading)
	assert.Equal(t, "one", InnerText(heading))
}

func TestFindDate(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "deepest leaf",
			html: `<div id="root"><p>title</p><div class="meta"><span class="by">Ann</span><time>Jan 3, 2023</time></div></div>`,
			want: "TIME",
		},
		{
			name: "first matching path",
			html: `<div id="root"><span class="a">2021</span><span class="b">2022</span></div>`,
			want: "SPAN.a",
		},
		{
			name: "text split across children",
			html: `<div id="root"><p class="d">Posted 20<b>24</b></p></div>`,
			want: "P.d",
		},
		{
			name: "no year",
			html: `<div id="root"><p>1999</p></div>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, "<body>"+tt.html+"</body>")
			found := findDate(doc.Find("#root").Get(0))
			assert.Equal(t, tt.want, keyOf(found))
		})
	}
}

func TestWinner_StableTies(t *testing.T) {
	candidates := []Candidate{
		{ItemSelector: "A", Score: 3},
		{ItemSelector: "B", Score: 5},
		{ItemSelector: "C", Score: 5},
	}

	assert.Equal(t, "B", Winner(candidates).ItemSelector)
	assert.Equal(t, "A", candidates[0].ItemSelector, "input order is untouched")
}
