package rssgen

import (
	"fmt"

	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/logger"
	"github.com/pevans/rssgen/sources"
)

// SeedSources upserts the sources listed in the configuration file into the
// registry.
func SeedSources(store *sources.SourceStore, entries []config.SourceConfig, log logger.Logger) error {
	for _, entry := range entries {
		src, err := store.UpsertSource(entry.NewSource())
		if err != nil {
			return fmt.Errorf("failed to seed source %s: %w", entry.Slug, err)
		}
		log.Info("Seeded source",
			logger.String("slug", src.Slug),
			logger.String("kind", src.Kind),
			logger.String("url", src.URL),
		)
	}
	return nil
}
