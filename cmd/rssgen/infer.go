package main

import (
	"fmt"

	"github.com/pevans/rssgen"
	"github.com/pevans/rssgen/config"
	"github.com/pevans/rssgen/discovery"
	"github.com/pevans/rssgen/scraper"
	"github.com/spf13/cobra"
)

// inferOutput is printed by the infer command.
type inferOutput struct {
	Selectors  scraper.Selectors          `json:"selectors"`
	Posts      []discovery.Post           `json:"posts"`
	Candidates []rssgen.CandidateResponse `json:"candidates,omitempty"`
}

func newInferCommand(configPath *string) *cobra.Command {
	var (
		candidates bool
		format     string
		base       string
	)

	cmd := &cobra.Command{
		Use:   "infer <url|file>",
		Short: "Infer the post selectors of a page",
		Long: `Infer finds the repeated structure holding the posts of a page and prints
the selectors it found together with the posts they extract.

Examples:
  # Infer selectors of a live page
  rssgen infer https://rocicorp.dev/blog

  # Show every candidate of a saved page as a table
  rssgen infer page.html --candidates --format table`,
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

			selectors, err := discovery.InferSelectors(doc)
			if err != nil {
				return err
			}

			out := inferOutput{
				Selectors: selectors,
				Posts:     discovery.ExtractPosts(doc, selectors),
			}
			if candidates {
				for _, c := range discovery.Candidates(doc) {
					out.Candidates = append(out.Candidates, rssgen.NewCandidateResponse(c))
				}
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				return printJSON(w, out)
			case "table":
				printSelectors(w, out.Selectors)
				printPosts(w, out.Posts)
				if candidates {
					printCandidatesTable(w, out.Candidates)
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (expected json or table)", format)
			}
		},
	}

	cmd.Flags().BoolVar(&candidates, "candidates", false, "Include every scored candidate")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or table")
	cmd.Flags().StringVar(&base, "base", "", "URL to resolve links against when reading a file")

	return cmd
}
