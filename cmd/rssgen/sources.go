package main

import (
	"fmt"

	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/sources"
	"github.com/spf13/cobra"
)

func newSourcesCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source registry",
	}

	// openStore opens the registry named by the configuration
	openStore := func() (*sources.SourceStore, error) {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		store, err := sources.NewSourceStore(cfg.SourcesDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open source store: %w", err)
		}
		return store, nil
	}

	var kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List all sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var filter sources.SourceFilter
			if kind != "" {
				filter.Kind = &kind
			}

			sourceList, err := store.ListSources(filter)
			if err != nil {
				return fmt.Errorf("failed to list sources: %w", err)
			}

			printSourcesTable(cmd.OutOrStdout(), sourceList)
			return nil
		},
	}
	list.Flags().StringVar(&kind, "kind", "", "Only list sources of this kind (html or feed_filter)")

	show := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a source as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			source, err := store.GetSourceBySlug(args[0])
			if err != nil {
				return fmt.Errorf("failed to get source: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), source)
		},
	}

	del := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			source, err := store.GetSourceBySlug(args[0])
			if err != nil {
				return fmt.Errorf("failed to get source: %w", err)
			}
			if err := store.DeleteSource(source.SourceID); err != nil {
				return fmt.Errorf("failed to delete source: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted source %s\n", source.Slug)
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
