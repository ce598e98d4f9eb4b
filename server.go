// Package rssgen serves HTML pages, filtered feeds and tweet lists as RSS
// feeds over HTTP.
package rssgen

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/feedcache"
	"github.com/pevans/rssgen/feedfilter"
	"github.com/pevans/rssgen/logger"
	"github.com/pevans/rssgen/sources"
)

// RSSContentType is the content type of every feed response.
const RSSContentType = "text/xml; charset=utf-8"

// Options holds the dependencies of a Server.
type Options struct {
	Sources *sources.SourceStore
	Cache   feedcache.Store
	Fetcher discovery.PageFetcher
	Logger  logger.Logger
	Metrics *Metrics
	// APIKey guards the write endpoints. Empty rejects every write.
	APIKey string
}

// Server is the rssgen HTTP server.
type Server struct {
	sources    *sources.SourceStore
	sourcesAPI *sources.SourceAPIServer
	cache      feedcache.Store
	fetcher    discovery.PageFetcher
	filter     *feedfilter.Filter
	log        logger.Logger
	metrics    *Metrics
	apiKey     string
}

// NewServer creates a server. A nil logger discards logs, a nil fetcher uses
// the default fetcher and nil metrics get a fresh registry.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = discovery.NewFetcher("", 0)
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	return &Server{
		sources:    opts.Sources,
		sourcesAPI: sources.NewSourceAPIServer(opts.Sources),
		cache:      opts.Cache,
		fetcher:    opts.Fetcher,
		filter:     feedfilter.New(opts.Fetcher),
		log:        opts.Logger,
		metrics:    opts.Metrics,
		apiKey:     opts.APIKey,
	}
}

// SetupRouter configures the Gin router with every route.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(s.log),
		instrument(s.metrics),
		cors(),
	)

	router.GET("/healthz", s.HandleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.GET("/source/:slug", s.HandleSource)
	router.GET("/feed", s.HandleAutoFeed)

	lists := router.Group("/twitter/lists")
	lists.GET("/:listId", s.HandleGetTwitterList)
	lists.POST("/:listId", sources.RequireAPIKey(s.apiKey), s.HandlePutTwitterList)

	playground := router.Group("/playground")
	playground.POST("/proxy", s.HandleProxy)
	playground.POST("/inspect", s.HandleInspect)

	s.sourcesAPI.RegisterRoutes(router.Group("/api/v1/sources", sources.RequireAPIKey(s.apiKey)))

	return router
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return sources.ErrorResponse(code, message)
}

// handleError maps errors to HTTP responses.
func (s *Server) handleError(c *gin.Context, err error) {
	c.Error(err)

	var fetchErr *discovery.FetchError
	switch {
	case errors.Is(err, sources.ErrSourceNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, discovery.ErrNoCandidateFound):
		s.metrics.InferFailures.Inc()
		c.JSON(http.StatusUnprocessableEntity, errorResponse("no_candidate", err.Error()))
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, errorResponse("upstream_error", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// currentURL returns the absolute URL of the request being served.
func currentURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

// writeFeed sends a rendered feed.
func writeFeed(c *gin.Context, body string) {
	c.Data(http.StatusOK, RSSContentType, []byte(body))
}
