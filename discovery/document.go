package discovery

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ParseHTML parses a raw HTML string into a document.
func ParseHTML(raw string) (*goquery.Document, error) {
	return NewDocument(strings.NewReader(raw))
}

// NewDocument parses HTML from r into a document.
func NewDocument(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// MainOrBody returns the first <main> element of the document, or <body>
// when there is none.
func MainOrBody(doc *goquery.Document) *goquery.Selection {
	if main := doc.Find("main").First(); main.Length() > 0 {
		return main
	}
	return doc.Find("body").First()
}

// TagName returns the DOM tag name of n. HTML elements are upper-cased;
// foreign (svg, math) elements keep their case.
func TagName(n *html.Node) string {
	if n.Namespace == "" {
		return strings.ToUpper(n.Data)
	}
	return n.Data
}

// ClassList returns the ordered class list of n with duplicates removed.
func ClassList(n *html.Node) []string {
	var classes []string
	seen := map[string]bool{}
	for _, attr := range n.Attr {
		if attr.Namespace != "" || attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if !seen[class] {
				seen[class] = true
				classes = append(classes, class)
			}
		}
	}
	return classes
}

// StructuralKey returns the selector that identifies elements that look the
// same: the tag name alone, or the tag name followed by each class.
func StructuralKey(n *html.Node) string {
	classes := ClassList(n)
	if len(classes) == 0 {
		return TagName(n)
	}
	return TagName(n) + "." + strings.Join(classes, ".")
}

// Attr returns the value of the named attribute and whether it is set.
func Attr(n *html.Node, name string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

// ElementChildren returns the element children of n in document order.
func ElementChildren(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, c)
		}
	}
	return children
}

// hiddenText lists the elements whose text is never rendered.
var hiddenText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// blockElements break the text flow; their text is separated from the text
// around them.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// InnerText returns the rendered text of n with whitespace collapsed to
// single spaces.
func InnerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenText[n.Data] {
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// compile parses a CSS selector, returning the syntax error instead of
// matching nothing.
func compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

// queryFirst returns the first descendant of n matching selector.
func queryFirst(n *html.Node, selector string) (*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(n, sel), nil
}
