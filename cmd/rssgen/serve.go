package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/rssgen"
	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/feedcache"
	"github.com/pevans/rssgen/logger"
	"github.com/pevans/rssgen/sources"
	"github.com/spf13/cobra"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the feed server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Opening source store", logger.String("path", cfg.SourcesDB))
	sourceStore, err := sources.NewSourceStore(cfg.SourcesDB)
	if err != nil {
		return fmt.Errorf("failed to open source store: %w", err)
	}
	defer sourceStore.Close()

	log.Info("Opening feed cache", logger.String("type", cfg.Cache.Type), logger.String("dsn", cfg.Cache.DSN))
	cache, err := feedcache.Open(cfg.Cache.Type, cfg.Cache.DSN)
	if err != nil {
		return fmt.Errorf("failed to open feed cache: %w", err)
	}
	defer cache.Close()

	if err := rssgen.SeedSources(sourceStore, cfg.Sources, log); err != nil {
		return err
	}

	if cfg.Server.APIKey == "" {
		log.Warn("No API key configured, write endpoints will reject every request")
	}

	server := rssgen.NewServer(rssgen.Options{
		Sources: sourceStore,
		Cache:   cache,
		Fetcher: discovery.NewFetcher(cfg.Fetch.UserAgent, cfg.Fetch.Timeout),
		Logger:  log,
		APIKey:  cfg.Server.APIKey,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", logger.String("addr", cfg.Server.Addr))
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Shutting down gracefully", logger.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		log.Info("Server stopped")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	return nil
}
