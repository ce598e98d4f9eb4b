package discovery

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/yosssi/gohtml"
)

// strippedElements never belong to the readable body of a page.
const strippedElements = "script, style, header, footer"

// SanitizeBody returns the pretty-printed inner HTML of the page's main
// content without scripts, styles, headers and footers. The document is left
// untouched. A nil document returns an empty string.
func SanitizeBody(doc *goquery.Document) (string, error) {
	if doc == nil {
		return "", nil
	}

	root := MainOrBody(doc).Clone()
	root.Find(strippedElements).Remove()

	inner, err := root.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render body: %w", err)
	}

	return gohtml.Format(inner), nil
}
