package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repomap/repomap/internal/analyze"
	"github.com/repomap/repomap/internal/report"
	"github.com/repomap/repomap/internal/store"
	"github.com/repomap/repomap/internal/ui"
)

var trackCmd = &cobra.Command{
	Use:     "track <path>",
	GroupID: "projects",
	Short:   "Track a project and run a first analysis",
	Long: `Add a project to the tracked set and analyze it immediately.

The analysis scans the file tree, detects languages and frameworks, and
writes repomap.md into the project root. With an Anthropic API key
configured, eligible source files also get AI function extraction.

The running daemon ('repomap run') picks tracked projects up and keeps
their maps current as files change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			return fmt.Errorf("not a directory: %s", path)
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
		for _, p := range tracked {
			if p == path {
				return fmt.Errorf("already tracked: %s", path)
			}
		}

		collab := analyze.NewClaudeCollaborator(settings.APIKey, settings.Model)
		if !collab.Available() {
			fmt.Printf("%s no API key configured, structural analysis only\n", ui.RenderWarn("⚠"))
		}
		analyzer := analyze.New(collab, settings.AnalyzerConfig())

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		start := time.Now()
		progress := func(stage string, percent int) {
			fmt.Printf("\r%-70.70s", ui.RenderMuted(stage))
		}

		info, err := analyzer.Analyze(ctx, path, progress)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", path, err)
		}

		if err := st.SaveProjects(append(tracked, path)); err != nil {
			return err
		}
		if err := st.SaveSnapshot(info); err != nil {
			return err
		}
		if err := report.WriteFile(path, info); err != nil {
			return err
		}

		fmt.Printf("%s Tracked %s in %v\n", ui.RenderPass("✓"),
			ui.RenderAccent(info.Name), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Files: %d (%d lines)\n", info.TotalFiles, info.TotalLines)
		fmt.Printf("   Language: %s\n", info.PrimaryLanguage)
		if len(info.Frameworks) > 0 {
			fmt.Printf("   Frameworks: %v\n", info.Frameworks)
		}
		if info.AnalysisEnabled {
			fmt.Printf("   Analyzed: %d files, %d functions\n", info.AnalyzedFiles, info.TotalFunctions)
		}
		fmt.Printf("   Map: %s\n", filepath.Join(path, report.FileName))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
