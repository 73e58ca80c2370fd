package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/repomap/repomap/internal/store"
	"github.com/repomap/repomap/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "projects",
	Short:   "List tracked projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(settings.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		tracked, err := st.LoadProjects()
		if err != nil {
			return err
		}
		if len(tracked) == 0 {
			fmt.Println("No tracked projects. Add one with 'repomap track <path>'.")
			return nil
		}

		fmt.Printf("%s\n\n", ui.RenderTitle(fmt.Sprintf("Tracked projects (%d)", len(tracked))))
		fmt.Printf("%-20s %-10s %8s %10s %-12s %s\n",
			"NAME", "STATUS", "FILES", "LINES", "LANGUAGE", "ANALYZED")

		pathWidth := ui.Width() - 4
		for _, root := range tracked {
			info, err := st.LoadSnapshot(root)
			if err != nil || info == nil {
				fmt.Printf("%-20s %-10s %8s %10s %-12s %s\n",
					truncate(filepath.Base(root), 20), ui.RenderMuted("pending"), "-", "-", "-", "-")
				fmt.Printf("    %s\n", ui.RenderMuted(truncate(root, pathWidth)))
				continue
			}

			analyzed := "-"
			if !info.LastAnalyzed.IsZero() {
				analyzed = relativeTime(info.LastAnalyzed)
			}
			fmt.Printf("%-20s %-10s %8d %10d %-12s %s\n",
				truncate(info.Name, 20), ui.RenderStatus(string(info.Status)),
				info.TotalFiles, info.TotalLines,
				truncate(info.PrimaryLanguage, 12), analyzed)
			fmt.Printf("    %s\n", ui.RenderMuted(truncate(root, pathWidth)))
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
