// Package tweets converts tweets pushed by a client into feed items.
package tweets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pevans/rssgen/rss"
)

// Kind is the kind of a top level tweet.
type Kind string

const (
	KindPlain   Kind = "plain"
	KindQuote   Kind = "quote"
	KindRetweet Kind = "retweet"
)

// Validation errors.
var (
	ErrMissingURL        = errors.New("tweet url is required")
	ErrMissingAuthor     = errors.New("tweet author screen name is required")
	ErrMissingCreatedAt  = errors.New("tweet createdAt is required")
	ErrInvalidKind       = errors.New("tweet type must be plain, quote or retweet")
	ErrMissingReferenced = errors.New("quote and retweet require a referenced tweet")
)

// Author is the account that posted a tweet.
type Author struct {
	Name       string `json:"name"`
	ScreenName string `json:"screenName"`
}

// Tweet is a single tweet.
type Tweet struct {
	URL       string    `json:"url"`
	CreatedAt Timestamp `json:"createdAt"`
	Author    Author    `json:"author"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"`
}

// TopLevelTweet is a tweet of a list timeline. Quotes and retweets carry
// the tweet they refer to.
type TopLevelTweet struct {
	Tweet
	Type       Kind   `json:"type"`
	Referenced *Tweet `json:"referenced,omitempty"`
}

// Timestamp is a tweet creation time. It decodes from a date string in any
// common layout or from unix milliseconds.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		t.Time = time.UnixMilli(millis).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode createdAt: %w", err)
	}

	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return fmt.Errorf("failed to parse createdAt %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

func (t Tweet) validate() error {
	if t.URL == "" {
		return ErrMissingURL
	}
	if t.Author.ScreenName == "" {
		return ErrMissingAuthor
	}
	if t.CreatedAt.IsZero() {
		return ErrMissingCreatedAt
	}
	return nil
}

// Validate checks the tweet and its referenced tweet.
func (t TopLevelTweet) Validate() error {
	if err := t.Tweet.validate(); err != nil {
		return err
	}

	switch t.Type {
	case KindPlain:
		return nil
	case KindQuote, KindRetweet:
		if t.Referenced == nil {
			return ErrMissingReferenced
		}
		if err := t.Referenced.validate(); err != nil {
			return fmt.Errorf("referenced: %w", err)
		}
		return nil
	default:
		return ErrInvalidKind
	}
}

// Decode reads and validates a JSON array of tweets.
func Decode(data []byte) ([]TopLevelTweet, error) {
	var list []TopLevelTweet
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode tweets: %w", err)
	}

	for i, t := range list {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tweet %d: %w", i, err)
		}
	}

	return list, nil
}

func image(src string) string {
	if src == "" {
		return ""
	}
	return "\n\n<img src=\"" + src + "\" />"
}

// Body returns the text of the tweet as shown in a feed reader, with lines
// separated by newlines.
func (t TopLevelTweet) Body() string {
	switch t.Type {
	case KindQuote:
		ref := t.referenced()
		return t.Text + "\n\n<hr />\nIn response to: @" + ref.Author.ScreenName + "\n" +
			ref.Text + image(ref.Image) + "\n"
	case KindRetweet:
		ref := t.referenced()
		return "@" + t.Author.ScreenName + " reposted\n\n<hr />\n" + ref.Text + image(ref.Image)
	default:
		return t.Text + image(t.Image)
	}
}

// Title returns the handle a feed item is attributed to. Retweets are
// attributed to the original author.
func (t TopLevelTweet) Title() string {
	if t.Type == KindRetweet {
		return "@" + t.referenced().Author.ScreenName
	}
	return "@" + t.Author.ScreenName
}

func (t TopLevelTweet) referenced() Tweet {
	if t.Referenced == nil {
		return Tweet{}
	}
	return *t.Referenced
}

// Item returns the feed item of the tweet.
func (t TopLevelTweet) Item() rss.Item {
	return rss.Item{
		Title:       t.Title(),
		Description: strings.ReplaceAll(t.Body(), "\n", "<br />"),
		Link:        t.URL,
		PubDate:     t.CreatedAt.UTC().Format(http.TimeFormat),
	}
}

// ToItems returns the feed items of tweets in order.
func ToItems(list []TopLevelTweet) []rss.Item {
	items := make([]rss.Item, 0, len(list))
	for _, t := range list {
		items = append(items, t.Item())
	}
	return items
}

// CacheKey returns the key a list's rendered feed is stored under.
func CacheKey(listID string) string {
	return "twitter.com/i/lists/" + listID
}

// ListParams returns the render parameters of a list feed.
func ListParams(listID, currentURL string, items []rss.Item) rss.Params {
	return rss.Params{
		Title:       "Twitter list " + listID,
		Description: "Twitter list for list id " + listID,
		CurrentURL:  currentURL,
		TargetURL:   "https://twitter.com/i/lists/" + listID,
		Items:       items,
	}
}
