package sources

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/rssgen/feedfilter"
	"github.com/pevans/rssgen/scraper"
)

// Source kinds.
const (
	KindHTML       = "html"
	KindFeedFilter = "feed_filter"
)

// Custom errors for source operations
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrDuplicateSlug  = errors.New("source with this slug already exists")
	ErrInvalidKind    = errors.New("kind must be html or feed_filter")
	ErrInvalidSlug    = errors.New("slug must be lowercase letters, digits, dots, dashes or underscores")
	ErrMissingConfig  = errors.New("html sources need scraper_config with an item selector, feed_filter sources need filter_config with a feed url")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// SourceStore manages source configurations using SQLite.
type SourceStore struct {
	db *sql.DB
}

// Source is a page or feed served as a feed under its slug.
type Source struct {
	SourceID      uuid.UUID          `json:"source_id"`
	Slug          string             `json:"slug"`
	Kind          string             `json:"kind"` // "html", "feed_filter"
	Name          string             `json:"name"`
	URL           string             `json:"url"`
	EnabledAt     *time.Time         `json:"enabled_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	ScraperConfig *scraper.Config    `json:"scraper_config,omitempty"`
	FilterConfig  *feedfilter.Config `json:"filter_config,omitempty"`
}

// IsEnabled returns true if the source is currently enabled.
func (s *Source) IsEnabled() bool {
	return s.EnabledAt != nil
}

// NewSource holds the fields of a source to create.
type NewSource struct {
	Slug          string
	Kind          string
	Name          string
	URL           string
	ScraperConfig *scraper.Config
	FilterConfig  *feedfilter.Config
	EnabledAt     *time.Time
}

// normalize fills config URLs from the source URL and validates the result.
func (n *NewSource) normalize() error {
	if !slugPattern.MatchString(n.Slug) {
		return ErrInvalidSlug
	}

	switch n.Kind {
	case KindHTML:
		if n.ScraperConfig == nil || strings.TrimSpace(n.ScraperConfig.ItemSelector) == "" {
			return ErrMissingConfig
		}
		cfg := *n.ScraperConfig
		if cfg.URL == "" {
			cfg.URL = n.URL
		}
		if n.URL == "" {
			n.URL = cfg.URL
		}
		n.ScraperConfig = &cfg
		n.FilterConfig = nil
	case KindFeedFilter:
		if n.FilterConfig == nil {
			return ErrMissingConfig
		}
		cfg := *n.FilterConfig
		if cfg.FeedURL == "" {
			cfg.FeedURL = n.URL
		}
		if n.URL == "" {
			n.URL = cfg.FeedURL
		}
		if err := cfg.Validate(); err != nil {
			return ErrMissingConfig
		}
		n.FilterConfig = &cfg
		n.ScraperConfig = nil
	default:
		return ErrInvalidKind
	}

	if n.Name == "" {
		n.Name = n.Slug
	}
	return nil
}

// SourceUpdate represents fields that can be updated on a source.
type SourceUpdate struct {
	Slug           *string
	Name           *string
	URL            *string
	EnabledAt      *time.Time
	ClearEnabledAt bool // Set to true to set enabled_at to NULL
	ScraperConfig  *scraper.Config
	FilterConfig   *feedfilter.Config
}

// SourceFilter represents filtering options for listing sources.
type SourceFilter struct {
	Kind    *string // Filter by kind
	Enabled *bool   // Filter by enabled status
	Limit   int     // Pagination limit
	Offset  int     // Pagination offset
}

// NewSourceStore creates a new source store with the given database path.
func NewSourceStore(dbPath string) (*SourceStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SourceStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the sources table if it doesn't exist.
func (s *SourceStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		source_id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		enabled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		scraper_config TEXT,
		filter_config TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// CreateSource creates a new source.
func (s *SourceStore) CreateSource(input NewSource) (*Source, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	now := time.Now()

	source := &Source{
		SourceID:      uuid.New(),
		Slug:          input.Slug,
		Kind:          input.Kind,
		Name:          input.Name,
		URL:           input.URL,
		EnabledAt:     input.EnabledAt,
		CreatedAt:     now,
		UpdatedAt:     now,
		ScraperConfig: input.ScraperConfig,
		FilterConfig:  input.FilterConfig,
	}

	scraperJSON, err := marshalConfig(source.ScraperConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scraper_config: %w", err)
	}
	filterJSON, err := marshalConfig(source.FilterConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter_config: %w", err)
	}

	query := `
		INSERT INTO sources (
			source_id, slug, kind, name, url, enabled_at,
			created_at, updated_at, scraper_config, filter_config
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		source.SourceID.String(),
		source.Slug,
		source.Kind,
		source.Name,
		source.URL,
		formatTime(source.EnabledAt),
		formatTime(&source.CreatedAt),
		formatTime(&source.UpdatedAt),
		scraperJSON,
		filterJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("failed to insert source: %w", err)
	}

	return source, nil
}

const selectSource = `
	SELECT source_id, slug, kind, name, url, enabled_at,
	       created_at, updated_at, scraper_config, filter_config
	FROM sources
`

// GetSource retrieves a source by ID.
func (s *SourceStore) GetSource(sourceID uuid.UUID) (*Source, error) {
	return s.getOne(selectSource+" WHERE source_id = ?", sourceID.String())
}

// GetSourceBySlug retrieves a source by slug.
func (s *SourceStore) GetSourceBySlug(slug string) (*Source, error) {
	return s.getOne(selectSource+" WHERE slug = ?", slug)
}

func (s *SourceStore) getOne(query string, arg any) (*Source, error) {
	source, err := scanSource(s.db.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	return source, nil
}

// ListSources lists sources with optional filtering.
func (s *SourceStore) ListSources(filter SourceFilter) ([]Source, error) {
	query := selectSource

	var whereClauses []string
	var args []any

	if filter.Kind != nil {
		whereClauses = append(whereClauses, "kind = ?")
		args = append(args, *filter.Kind)
	}

	if filter.Enabled != nil {
		if *filter.Enabled {
			whereClauses = append(whereClauses, "enabled_at IS NOT NULL")
		} else {
			whereClauses = append(whereClauses, "enabled_at IS NULL")
		}
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY slug ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return sources, nil
}

// UpdateSource updates a source with the provided fields.
func (s *SourceStore) UpdateSource(sourceID uuid.UUID, update SourceUpdate) error {
	setClauses := []string{"updated_at = ?"}
	now := time.Now()
	args := []any{formatTime(&now)}

	if update.Slug != nil {
		if !slugPattern.MatchString(*update.Slug) {
			return ErrInvalidSlug
		}
		setClauses = append(setClauses, "slug = ?")
		args = append(args, *update.Slug)
	}
	if update.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *update.Name)
	}
	if update.URL != nil {
		setClauses = append(setClauses, "url = ?")
		args = append(args, *update.URL)
	}
	if update.ClearEnabledAt {
		setClauses = append(setClauses, "enabled_at = ?")
		args = append(args, nil)
	} else if update.EnabledAt != nil {
		setClauses = append(setClauses, "enabled_at = ?")
		args = append(args, formatTime(update.EnabledAt))
	}
	if update.ScraperConfig != nil {
		if strings.TrimSpace(update.ScraperConfig.ItemSelector) == "" {
			return ErrMissingConfig
		}
		data, err := marshalConfig(update.ScraperConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal scraper_config: %w", err)
		}
		setClauses = append(setClauses, "scraper_config = ?")
		args = append(args, data)
	}
	if update.FilterConfig != nil {
		if err := update.FilterConfig.Validate(); err != nil {
			return ErrMissingConfig
		}
		data, err := marshalConfig(update.FilterConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal filter_config: %w", err)
		}
		setClauses = append(setClauses, "filter_config = ?")
		args = append(args, data)
	}

	args = append(args, sourceID.String())

	query := fmt.Sprintf("UPDATE sources SET %s WHERE source_id = ?",
		strings.Join(setClauses, ", "))

	result, err := s.db.Exec(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update source: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}

	return nil
}

// UpsertSource creates the source with the given slug or replaces the kind,
// name, URL and configs of the existing one. The enabled state of an
// existing source is kept.
func (s *SourceStore) UpsertSource(input NewSource) (*Source, error) {
	existing, err := s.GetSourceBySlug(input.Slug)
	if errors.Is(err, ErrSourceNotFound) {
		return s.CreateSource(input)
	}
	if err != nil {
		return nil, err
	}

	if err := input.normalize(); err != nil {
		return nil, err
	}

	scraperJSON, err := marshalConfig(input.ScraperConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scraper_config: %w", err)
	}
	filterJSON, err := marshalConfig(input.FilterConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter_config: %w", err)
	}

	now := time.Now()
	_, err = s.db.Exec(`
		UPDATE sources
		SET kind = ?, name = ?, url = ?, scraper_config = ?, filter_config = ?, updated_at = ?
		WHERE source_id = ?
	`,
		input.Kind, input.Name, input.URL, scraperJSON, filterJSON,
		formatTime(&now), existing.SourceID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}

	return s.GetSource(existing.SourceID)
}

// DeleteSource deletes a source.
func (s *SourceStore) DeleteSource(sourceID uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM sources WHERE source_id = ?", sourceID.String())
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSource parses a row selected with selectSource into a Source.
func scanSource(row rowScanner) (*Source, error) {
	var sourceIDStr, slug, kind, name, url, createdAtStr, updatedAtStr string
	var enabledAtStr, scraperJSON, filterJSON sql.NullString

	err := row.Scan(
		&sourceIDStr, &slug, &kind, &name, &url, &enabledAtStr,
		&createdAtStr, &updatedAtStr, &scraperJSON, &filterJSON,
	)
	if err != nil {
		return nil, err
	}

	sourceID, err := uuid.Parse(sourceIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source ID: %w", err)
	}

	source := &Source{
		SourceID:  sourceID,
		Slug:      slug,
		Kind:      kind,
		Name:      name,
		URL:       url,
		CreatedAt: parseTime(createdAtStr),
		UpdatedAt: parseTime(updatedAtStr),
	}

	if enabledAtStr.Valid {
		t := parseTime(enabledAtStr.String)
		source.EnabledAt = &t
	}

	if scraperJSON.Valid {
		var cfg scraper.Config
		if err := json.Unmarshal([]byte(scraperJSON.String), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scraper_config: %w", err)
		}
		source.ScraperConfig = &cfg
	}
	if filterJSON.Valid {
		var cfg feedfilter.Config
		if err := json.Unmarshal([]byte(filterJSON.String), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filter_config: %w", err)
		}
		source.FilterConfig = &cfg
	}

	return source, nil
}

// marshalConfig returns the JSON of cfg, or nil for a nil config.
func marshalConfig[T any](cfg *T) (any, error) {
	if cfg == nil {
		return nil, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "unique constraint")
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	// Strip monotonic clock for consistent comparisons
	return t.Truncate(0)
}
