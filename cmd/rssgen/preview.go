package main

import (
	"fmt"

	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/discovery"
	"github.com/spf13/cobra"
)

func newPreviewCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <url|file>",
		Short: "Print the sanitized main content of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			doc, err := loadDocument(cmd.Context(), cfg, args[0], "")
			if err != nil {
				return err
			}

			body, err := discovery.SanitizeBody(doc)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
}
