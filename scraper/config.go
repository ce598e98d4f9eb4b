package scraper

// Selectors identifies the posts of a page and the fields inside each post.
// Every selector except Item is relative to the matched item element. An
// empty selector means the field is not extracted.
type Selectors struct {
	Item        string `json:"item" yaml:"item"`
	Anchor      string `json:"anchor,omitempty" yaml:"anchor"`
	Heading     string `json:"heading,omitempty" yaml:"heading"`
	Date        string `json:"date,omitempty" yaml:"date"`
	Description string `json:"description" yaml:"description"`
}

// Config defines how to turn a listing page into a feed with known
// selectors. It is used by the streaming extractor.
type Config struct {
	URL                 string `json:"url" yaml:"url"`
	ItemSelector        string `json:"item_selector" yaml:"item_selector"`
	LinkSelector        string `json:"link_selector" yaml:"link_selector"`
	HeadingSelector     string `json:"heading_selector" yaml:"heading_selector"`
	DescriptionSelector string `json:"description_selector,omitempty" yaml:"description_selector"`
	DateSelector        string `json:"date_selector,omitempty" yaml:"date_selector"`
}

// NewConfig creates a config from a selector set, mapping the anchor
// selector to the link selector.
func NewConfig(url string, s Selectors) *Config {
	return &Config{
		URL:                 url,
		ItemSelector:        s.Item,
		LinkSelector:        s.Anchor,
		HeadingSelector:     s.Heading,
		DescriptionSelector: s.Description,
		DateSelector:        s.Date,
	}
}

// Selectors returns the config's selectors as a selector set.
func (c *Config) Selectors() Selectors {
	return Selectors{
		Item:        c.ItemSelector,
		Anchor:      c.LinkSelector,
		Heading:     c.HeadingSelector,
		Date:        c.DateSelector,
		Description: c.DescriptionSelector,
	}
}
