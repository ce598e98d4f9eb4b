package sources

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/rssgen/feedfilter"
	"github.com/pevans/rssgen/scraper"
)

// APIKeyHeader carries the key of write requests.
const APIKeyHeader = "X-API-Key"

// SourceAPIServer serves the source management API.
type SourceAPIServer struct {
	store *SourceStore
}

// NewSourceAPIServer creates a new source API server.
func NewSourceAPIServer(store *SourceStore) *SourceAPIServer {
	return &SourceAPIServer{
		store: store,
	}
}

// RegisterRoutes adds the source routes to rg, which is normally mounted at
// /api/v1/sources.
func (s *SourceAPIServer) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", s.HandleListSources)
	rg.GET("/:id", s.HandleGetSource)
	rg.POST("", s.HandleCreateSource)
	rg.PUT("/:id", s.HandleUpdateSource)
	rg.DELETE("/:id", s.HandleDeleteSource)
}

// RequireAPIKey rejects requests whose X-API-Key header is not key. An empty
// key rejects every request.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader(APIKeyHeader) != key {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse("forbidden", "Forbidden"))
			return
		}
		c.Next()
	}
}

// ListSourcesResponse represents the response for GET /api/v1/sources.
type ListSourcesResponse struct {
	Sources []Source `json:"sources"`
	Total   int      `json:"total"`
}

// CreateSourceRequest represents the request for POST /api/v1/sources.
type CreateSourceRequest struct {
	Slug          string             `json:"slug" binding:"required"`
	Kind          string             `json:"kind" binding:"required"`
	Name          string             `json:"name"`
	URL           string             `json:"url"`
	ScraperConfig *scraper.Config    `json:"scraper_config,omitempty"`
	FilterConfig  *feedfilter.Config `json:"filter_config,omitempty"`
	Enabled       *bool              `json:"enabled,omitempty"` // Default: true
}

// UpdateSourceRequest represents the request for PUT /api/v1/sources/{id}.
type UpdateSourceRequest struct {
	Slug          *string            `json:"slug,omitempty"`
	Name          *string            `json:"name,omitempty"`
	URL           *string            `json:"url,omitempty"`
	Enabled       *bool              `json:"enabled,omitempty"`
	ScraperConfig *scraper.Config    `json:"scraper_config,omitempty"`
	FilterConfig  *feedfilter.Config `json:"filter_config,omitempty"`
}

// ErrorResponse creates a standardized error response.
func ErrorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *SourceAPIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse("not_found", err.Error()))
	case errors.Is(err, ErrDuplicateSlug):
		c.JSON(http.StatusConflict, ErrorResponse("conflict", err.Error()))
	case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrInvalidSlug), errors.Is(err, ErrMissingConfig):
		c.JSON(http.StatusBadRequest, ErrorResponse("validation_error", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListSources handles GET /api/v1/sources.
func (s *SourceAPIServer) HandleListSources(c *gin.Context) {
	filter := SourceFilter{}

	if kind := c.Query("kind"); kind != "" {
		filter.Kind = &kind
	}

	if enabledParam := c.Query("enabled"); enabledParam != "" {
		enabled := enabledParam == "true"
		filter.Enabled = &enabled
	}

	for param, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse("bad_request", "Invalid "+param))
			return
		}
		*dst = n
	}

	sources, err := s.store.ListSources(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if sources == nil {
		sources = []Source{}
	}

	c.JSON(http.StatusOK, ListSourcesResponse{
		Sources: sources,
		Total:   len(sources),
	})
}

// HandleGetSource handles GET /api/v1/sources/{id}.
func (s *SourceAPIServer) HandleGetSource(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("bad_request", "Invalid source ID"))
		return
	}

	source, err := s.store.GetSource(sourceID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, source)
}

// HandleCreateSource handles POST /api/v1/sources.
func (s *SourceAPIServer) HandleCreateSource(c *gin.Context) {
	var req CreateSourceRequest

	// Bind JSON -- Gin validates required fields automatically
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("validation_error", err.Error()))
		return
	}

	var enabledAt *time.Time
	if req.Enabled == nil || *req.Enabled {
		now := time.Now()
		enabledAt = &now
	}

	source, err := s.store.CreateSource(NewSource{
		Slug:          req.Slug,
		Kind:          req.Kind,
		Name:          req.Name,
		URL:           req.URL,
		ScraperConfig: req.ScraperConfig,
		FilterConfig:  req.FilterConfig,
		EnabledAt:     enabledAt,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, source)
}

// HandleUpdateSource handles PUT /api/v1/sources/{id}.
func (s *SourceAPIServer) HandleUpdateSource(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("bad_request", "Invalid source ID"))
		return
	}

	var req UpdateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("bad_request", err.Error()))
		return
	}

	update := SourceUpdate{
		Slug:          req.Slug,
		Name:          req.Name,
		URL:           req.URL,
		ScraperConfig: req.ScraperConfig,
		FilterConfig:  req.FilterConfig,
	}

	// Handle enabled -- convert boolean to enabled_at timestamp
	if req.Enabled != nil {
		if *req.Enabled {
			now := time.Now()
			update.EnabledAt = &now
		} else {
			update.ClearEnabledAt = true
		}
	}

	if err := s.store.UpdateSource(sourceID, update); err != nil {
		s.handleError(c, err)
		return
	}

	source, err := s.store.GetSource(sourceID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, source)
}

// HandleDeleteSource handles DELETE /api/v1/sources/{id}.
func (s *SourceAPIServer) HandleDeleteSource(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("bad_request", "Invalid source ID"))
		return
	}

	if err := s.store.DeleteSource(sourceID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
