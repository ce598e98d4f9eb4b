package rssgen

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/feedcache"
	"github.com/pevans/rssgen/logger"
	"github.com/pevans/rssgen/rss"
	"github.com/pevans/rssgen/scraper"
	"github.com/pevans/rssgen/sources"
	"github.com/pevans/rssgen/stream"
	"github.com/pevans/rssgen/tweets"
	"golang.org/x/net/html"
)

// Feed kinds used as metric labels.
const (
	kindAuto    = "auto"
	kindTwitter = "twitter"
)

// HandleHealth handles GET /healthz.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleSource handles GET /source/{slug}.
func (s *Server) HandleSource(c *gin.Context) {
	src, err := s.sources.GetSourceBySlug(c.Param("slug"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	if !src.IsEnabled() {
		s.handleError(c, sources.ErrSourceNotFound)
		return
	}

	var params rss.Params
	switch src.Kind {
	case sources.KindHTML:
		res, err := stream.Fetch(c.Request.Context(), s.fetcher, *src.ScraperConfig)
		if err != nil {
			s.handleError(c, err)
			return
		}
		params = res.Params(currentURL(c), src.ScraperConfig.URL)
	case sources.KindFeedFilter:
		res, err := s.filter.Run(c.Request.Context(), *src.FilterConfig)
		if err != nil {
			s.handleError(c, err)
			return
		}
		for _, link := range res.Dropped {
			s.log.Info("Ignored feed item", logger.String("source", src.Slug), logger.String("link", link))
		}
		s.metrics.ItemsDropped.Add(float64(len(res.Dropped)))
		params = res.Params(currentURL(c))
	default:
		s.handleError(c, fmt.Errorf("source %s has unknown kind %q", src.Slug, src.Kind))
		return
	}

	s.metrics.observeFeed(src.Kind, len(params.Items))
	writeFeed(c, rss.Render(params))
}

// HandleGetTwitterList handles GET /twitter/lists/{listId}. Lists that were
// never pushed are served as an empty feed.
func (s *Server) HandleGetTwitterList(c *gin.Context) {
	listID := c.Param("listId")

	feed, err := s.cache.Get(c.Request.Context(), tweets.CacheKey(listID))
	if errors.Is(err, feedcache.ErrNotFound) {
		feed = rss.Render(tweets.ListParams(listID, currentURL(c), nil))
	} else if err != nil {
		s.handleError(c, err)
		return
	}

	writeFeed(c, feed)
}

// HandlePutTwitterList handles POST /twitter/lists/{listId}. The body is a
// JSON array of tweets, rendered and stored for later reads.
func (s *Server) HandlePutTwitterList(c *gin.Context) {
	listID := c.Param("listId")

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	list, err := tweets.Decode(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	items := tweets.ToItems(list)
	feed := rss.Render(tweets.ListParams(listID, currentURL(c), items))
	if err := s.cache.Put(c.Request.Context(), tweets.CacheKey(listID), feed); err != nil {
		s.handleError(c, err)
		return
	}

	s.metrics.observeFeed(kindTwitter, len(items))
	c.JSON(http.StatusOK, gin.H{})
}

// HandleAutoFeed handles GET /feed?url=. The page's posts are found without
// any configured selectors.
func (s *Server) HandleAutoFeed(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "url query parameter is required"))
		return
	}

	doc, err := discovery.FetchDocument(c.Request.Context(), s.fetcher, target)
	if err != nil {
		s.handleError(c, err)
		return
	}

	params, err := AutoFeedParams(doc, currentURL(c))
	if err != nil {
		s.handleError(c, err)
		return
	}
	if params.TargetURL == "" {
		params.TargetURL = target
	}

	s.metrics.observeFeed(kindAuto, len(params.Items))
	writeFeed(c, rss.Render(params))
}

// AutoFeedParams infers the selectors of doc and returns the feed of its
// posts. Links are resolved against doc.Url when it is set, which is also the
// feed's target.
func AutoFeedParams(doc *goquery.Document, currentURL string) (rss.Params, error) {
	selectors, err := discovery.InferSelectors(doc)
	if err != nil {
		return rss.Params{}, err
	}

	params := rss.Params{
		Title:       strings.TrimSpace(doc.Find("head title").First().Text()),
		Description: metaDescription(doc),
		CurrentURL:  currentURL,
		Items:       PostsToItems(discovery.ExtractPosts(doc, selectors), doc.Url),
	}
	if doc.Url != nil {
		params.TargetURL = doc.Url.String()
	}

	return params, nil
}

// ProxyRequest represents the request for POST /playground/proxy.
type ProxyRequest struct {
	URL string `json:"url" binding:"required"`
}

// HandleProxy handles POST /playground/proxy. It returns the raw HTML of a
// page so browser clients can inspect pages on other origins.
func (s *Server) HandleProxy(c *gin.Context) {
	var req ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	page, err := s.fetcher.Fetch(c.Request.Context(), req.URL, discovery.AcceptHTML)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", page.Body)
}

// InspectRequest represents the request for POST /playground/inspect. Exactly
// one of URL and HTML must be set.
type InspectRequest struct {
	URL       string             `json:"url"`
	HTML      string             `json:"html"`
	Selectors *scraper.Selectors `json:"selectors,omitempty"`
}

// CandidateResponse describes a candidate group by structural keys.
type CandidateResponse struct {
	ItemSelector string `json:"item_selector"`
	Anchor       string `json:"anchor,omitempty"`
	Heading      string `json:"heading,omitempty"`
	Date         string `json:"date,omitempty"`
	Siblings     int    `json:"siblings"`
	Score        int    `json:"score"`
}

// InspectResponse represents the response for POST /playground/inspect.
type InspectResponse struct {
	Selectors  scraper.Selectors   `json:"selectors"`
	Inferred   bool                `json:"inferred"`
	Candidates []CandidateResponse `json:"candidates"`
	Posts      []discovery.Post    `json:"posts"`
	Body       string              `json:"body"`
}

// HandleInspect handles POST /playground/inspect. It runs selector inference,
// post extraction and body sanitizing on a page and returns every
// intermediate result.
func (s *Server) HandleInspect(c *gin.Context) {
	var req InspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	if (req.URL == "") == (req.HTML == "") {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "exactly one of url and html is required"))
		return
	}

	var doc *goquery.Document
	var err error
	if req.URL != "" {
		doc, err = discovery.FetchDocument(c.Request.Context(), s.fetcher, req.URL)
	} else {
		doc, err = discovery.ParseHTML(req.HTML)
	}
	if err != nil {
		s.handleError(c, err)
		return
	}

	resp := InspectResponse{Candidates: []CandidateResponse{}}
	for _, cand := range discovery.Candidates(doc) {
		resp.Candidates = append(resp.Candidates, NewCandidateResponse(cand))
	}

	if req.Selectors != nil {
		resp.Selectors = *req.Selectors
	} else {
		resp.Selectors, err = discovery.InferSelectors(doc)
		if err != nil {
			s.handleError(c, err)
			return
		}
		resp.Inferred = true
	}

	resp.Posts = discovery.ExtractPosts(doc, resp.Selectors)

	resp.Body, err = discovery.SanitizeBody(doc)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// NewCandidateResponse describes c by the structural keys of its nodes.
func NewCandidateResponse(c discovery.Candidate) CandidateResponse {
	key := func(n *html.Node) string {
		if n == nil {
			return ""
		}
		return discovery.StructuralKey(n)
	}
	return CandidateResponse{
		ItemSelector: c.ItemSelector,
		Anchor:       key(c.Anchor),
		Heading:      key(c.Heading),
		Date:         key(c.Date),
		Siblings:     c.Siblings,
		Score:        c.Score,
	}
}

// PostsToItems converts extracted posts to feed items. Links are resolved
// against base when it is set and missing fields become empty strings.
func PostsToItems(posts []discovery.Post, base *url.URL) []rss.Item {
	items := make([]rss.Item, 0, len(posts))
	for _, p := range posts {
		item := rss.Item{
			Title:       deref(p.Heading),
			Description: deref(p.Description),
			Link:        deref(p.URL),
			PubDate:     deref(p.Date),
		}
		if base != nil && item.Link != "" {
			if ref, err := url.Parse(strings.TrimSpace(item.Link)); err == nil {
				item.Link = base.ResolveReference(ref).String()
			}
		}
		items = append(items, item)
	}
	return items
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// metaDescription returns the content of the page's meta description.
func metaDescription(doc *goquery.Document) string {
	content, _ := doc.Find(`head meta[name="description"]`).First().Attr("content")
	return content
}
