package main

import (
	"fmt"

	"github.com/pevans/rssgen"
	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/rss"
	"github.com/spf13/cobra"
)

func newFeedCommand(configPath *string) *cobra.Command {
	var (
		base string
		self string
	)

	cmd := &cobra.Command{
		Use:   "feed <url|file>",
		Short: "Print an RSS feed of the posts of a page",
		Long: `Feed infers where the posts of a page are and prints them as an RSS
document, the same one the server returns from /feed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			doc, err := loadDocument(cmd.Context(), cfg, args[0], base)
			if err != nil {
				return err
			}

			params, err := rssgen.AutoFeedParams(doc, self)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), rss.Render(params))
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "URL to resolve links against when reading a file")
	cmd.Flags().StringVar(&self, "self", "", "URL the feed is published at")

	return cmd
}
