package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "rssgen",
		Short: "Generate RSS feeds from HTML pages",
		Long: `rssgen turns pages without feeds into RSS.

It serves feeds for configured sources, builds feeds for arbitrary pages by
inferring where their posts are, and stores pushed Twitter lists.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getEnv("RSSGEN_CONFIG", ""), "Path to a YAML config file (RSSGEN_CONFIG)")

	root.AddCommand(
		newServeCommand(&configPath),
		newInferCommand(&configPath),
		newPreviewCommand(&configPath),
		newFeedCommand(&configPath),
		newSourcesCommand(&configPath),
	)

	return root
}
