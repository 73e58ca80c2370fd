// Command repomap tracks repositories and keeps live, AI-enriched maps
// of their structure.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repomap/repomap/internal/config"
)

var version = "0.1.0"

var (
	cfgFile  string
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "repomap",
	Short: "Live repository maps with AI-assisted code analysis",
	Long: `Repomap tracks repositories, scans their file trees, and keeps a
generated repomap.md up to date as files change.

Tracked projects are analyzed immediately and re-analyzed whenever the
filesystem goes quiet after a change. With an Anthropic API key
configured, analysis includes per-file function and class extraction.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default repomap.yaml in . or ~/.repomap)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "projects", Title: "Project Commands:"},
		&cobra.Group{ID: "daemon", Title: "Daemon Commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
