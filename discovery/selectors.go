package discovery

import (
	"errors"
	"regexp"
	"slices"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/rssgen/scraper"
	"golang.org/x/net/html"
)

// ErrNoCandidateFound is returned when a document has no repeated sibling
// structure that could be a list of posts.
var ErrNoCandidateFound = errors.New("no repeated structure found")

// skippedChildren are never considered as post candidates.
var skippedChildren = map[string]bool{
	"SCRIPT": true,
	"LINK":   true,
	"NAV":    true,
}

// headingTags are searched in priority order.
var headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

var yearPattern = regexp.MustCompile(`20\d\d`)

// Candidate is a group of same-looking siblings that might be the posts of a
// page, described by its first member.
type Candidate struct {
	ItemSelector string
	Anchor       *html.Node
	Heading      *html.Node
	Date         *html.Node
	Siblings     int
	Score        int
}

// group is a set of siblings sharing a structural key.
type group struct {
	key     string
	members []*html.Node
}

// Candidates returns every candidate group of the document, scored, in the
// order they were found.
func Candidates(doc *goquery.Document) []Candidate {
	if doc == nil {
		return nil
	}

	var groups []group
	for _, root := range MainOrBody(doc).Nodes {
		groups = append(groups, collectGroups(root)...)
	}

	candidates := make([]Candidate, 0, len(groups))
	for _, g := range groups {
		rep := g.members[0]
		candidates = append(candidates, Candidate{
			ItemSelector: g.key,
			Anchor:       findAnchor(rep),
			Heading:      findHeading(rep),
			Date:         findDate(rep),
			Siblings:     len(g.members),
		})
	}

	score(candidates)
	return candidates
}

// InferSelectors discovers the selectors of the posts in a document.
func InferSelectors(doc *goquery.Document) (scraper.Selectors, error) {
	candidates := Candidates(doc)
	if len(candidates) == 0 {
		return scraper.Selectors{}, ErrNoCandidateFound
	}

	winner := Winner(candidates)

	return scraper.Selectors{
		Item:        winner.ItemSelector,
		Anchor:      keyOf(winner.Anchor),
		Heading:     keyOf(winner.Heading),
		Date:        keyOf(winner.Date),
		Description: "",
	}, nil
}

// Winner returns the highest scoring candidate. Ties go to the candidate
// found first. candidates must not be empty.
func Winner(candidates []Candidate) Candidate {
	sorted := slices.Clone(candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted[0]
}

// collectGroups walks root depth first and returns every group of two or
// more siblings that share a structural key. Groups of one parent come in the
// order their key first appears and before the groups of its descendants.
func collectGroups(root *html.Node) []group {
	var groups []group

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		var children []*html.Node
		for _, child := range ElementChildren(n) {
			if !skippedChildren[TagName(child)] {
				children = append(children, child)
			}
		}

		var keys []string
		byKey := map[string][]*html.Node{}
		for _, child := range children {
			key := StructuralKey(child)
			if _, ok := byKey[key]; !ok {
				keys = append(keys, key)
			}
			byKey[key] = append(byKey[key], child)
		}

		for _, key := range keys {
			if len(byKey[key]) >= 2 {
				groups = append(groups, group{key: key, members: byKey[key]})
			}
		}

		for _, child := range children {
			traverse(child)
		}
	}
	traverse(root)

	return groups
}

// score ranks candidates by sibling count and anchor presence. Heading and
// date presence do not count.
func score(candidates []Candidate) {
	var counts []int
	for _, c := range candidates {
		if !slices.Contains(counts, c.Siblings) {
			counts = append(counts, c.Siblings)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	for i := range candidates {
		c := &candidates[i]
		c.Score = 0

		switch slices.Index(counts, c.Siblings) {
		case 0:
			c.Score += 2
		case 1:
			c.Score++
		}
		if c.Anchor != nil {
			c.Score += 3
		}
	}
}

// findAnchor returns n itself when it is a link, or else its first
// descendant link.
func findAnchor(n *html.Node) *html.Node {
	if TagName(n) == "A" {
		return n
	}
	return firstDescendant(n, func(d *html.Node) bool { return d.Data == "a" && d.Namespace == "" })
}

// findHeading returns the first h1 descendant, else the first h2, and so on.
func findHeading(n *html.Node) *html.Node {
	for _, tag := range headingTags {
		found := firstDescendant(n, func(d *html.Node) bool { return d.Data == tag && d.Namespace == "" })
		if found != nil {
			return found
		}
	}
	return nil
}

// findDate returns the deepest element along the first path of elements
// whose text mentions a year. n itself is returned when none of its children
// match.
func findDate(n *html.Node) *html.Node {
	if !yearPattern.MatchString(InnerText(n)) {
		return nil
	}
	for _, child := range ElementChildren(n) {
		if found := findDate(child); found != nil {
			return found
		}
	}
	return n
}

// firstDescendant returns the first element below n, in document order, for
// which match returns true.
func firstDescendant(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if match(c) {
			return c
		}
		if found := firstDescendant(c, match); found != nil {
			return found
		}
	}
	return nil
}

// keyOf returns the structural key of n, or an empty string for nil.
func keyOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	return StructuralKey(n)
}
