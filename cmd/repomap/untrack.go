package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repomap/repomap/internal/ignore"
	"github.com/repomap/repomap/internal/report"
	"github.com/repomap/repomap/internal/store"
	"github.com/repomap/repomap/internal/ui"
)

var untrackCmd = &cobra.Command{
	Use:     "untrack <path>",
	GroupID: "projects",
	Short:   "Stop tracking a project",
	Long: `Remove a project from the tracked set and drop its saved snapshot.

With --clean, the generated repomap.md and the ignore file are deleted
from the project root as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clean, _ := cmd.Flags().GetBool("clean")

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		st, err := store.Open(settings.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		tracked, err := st.LoadProjects()
		if err != nil {
			return err
		}
		remaining := tracked[:0]
		found := false
		for _, p := range tracked {
			if p == path {
				found = true
				continue
			}
			remaining = append(remaining, p)
		}
		if !found {
			return fmt.Errorf("not tracked: %s", path)
		}

		if err := st.SaveProjects(remaining); err != nil {
			return err
		}

		if clean {
			if err := report.Remove(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			ignorePath := filepath.Join(path, ignore.IgnoreFileName)
			if err := os.Remove(ignorePath); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: removing %s: %v\n", ignorePath, err)
			}
		}

		fmt.Printf("%s Untracked %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

func init() {
	untrackCmd.Flags().Bool("clean", false, "also delete repomap.md and the ignore file")
	rootCmd.AddCommand(untrackCmd)
}
