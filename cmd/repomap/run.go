package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/repomap/repomap/internal/analyze"
	"github.com/repomap/repomap/internal/dashboard"
	"github.com/repomap/repomap/internal/report"
	"github.com/repomap/repomap/internal/store"
	"github.com/repomap/repomap/internal/tracker"
	"github.com/repomap/repomap/internal/ui"
)

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: "daemon",
	Short:   "Run the tracking daemon",
	Long: `Watch all tracked projects and keep their maps current.

The daemon loads the tracked project set, starts a filesystem watcher
per project, and re-analyzes a project whenever its files go quiet
after a change. Each completed analysis rewrites the project's
repomap.md and updates the saved snapshot.

With --dashboard, a WebSocket server broadcasts live project updates:
  repomap run --dashboard             # dashboard on the configured port
  repomap run --dashboard --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = settings.DashboardPort
		}

		logger := daemonLogger()

		st, err := store.Open(settings.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		collab := analyze.NewClaudeCollaborator(settings.APIKey, settings.Model)
		if !collab.Available() {
			logger.Println("No API key configured, structural analysis only")
		}
		analyzerCfg := settings.AnalyzerConfig()
		analyzerCfg.Logger = logger
		analyzer := analyze.New(collab, analyzerCfg)

		trackerCfg := settings.TrackerConfig()
		trackerCfg.Logger = logger
		tr := tracker.New(analyzer, st, trackerCfg)
		defer tr.Close()

		var dash *dashboard.Server
		if withDashboard {
			dash = dashboard.NewServer(&dashboard.Config{Port: port, Logger: logger})
			if err := dash.Start(); err != nil {
				return err
			}
			defer func() {
				if err := dash.Stop(); err != nil {
					logger.Printf("Dashboard shutdown error: %v", err)
				}
			}()
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", port)
		}

		tr.LoadSaved()
		fmt.Printf("%s Daemon running, tracking %d project(s)\n",
			ui.RenderPass("✓"), len(tr.Projects()))
		fmt.Println("Press Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		consumeMessages(ctx, tr, st, dash, logger)

		fmt.Println("\nShutting down...")
		return nil
	},
}

// consumeMessages drains the tracker bus until the context ends,
// persisting snapshots and regenerating project maps as they arrive.
func consumeMessages(ctx context.Context, tr *tracker.Tracker, st *store.Store, dash *dashboard.Server, logger *log.Logger) {
	for {
		msg, err := tr.Bus().Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, tracker.ErrBusClosed) {
				return
			}
			logger.Printf("Bus error: %v", err)
			return
		}

		if dash != nil {
			dash.Broadcast(msg)
		}

		switch msg.Type {
		case tracker.MessageTypeProjectUpdated:
			if msg.Info == nil {
				continue
			}
			if err := st.SaveSnapshot(msg.Info); err != nil {
				logger.Printf("Persisting snapshot for %s: %v", msg.Project, err)
			}
			if err := report.WriteFile(msg.Project, msg.Info); err != nil {
				logger.Printf("Writing map for %s: %v", msg.Project, err)
			} else {
				logger.Printf("Updated map for %s (%d files, %d lines)",
					msg.Project, msg.Info.TotalFiles, msg.Info.TotalLines)
			}
		case tracker.MessageTypeAnalysisError:
			logger.Printf("Analysis failed for %s: %s", msg.Project, msg.Error)
		}
	}
}

// daemonLogger writes to stderr, and additionally to a rotated log file
// when one is configured.
func daemonLogger() *log.Logger {
	var w io.Writer = os.Stderr
	if settings.LogFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   settings.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	return log.New(w, "[repomap] ", log.LstdFlags)
}

func init() {
	runCmd.Flags().Bool("dashboard", false, "start the WebSocket dashboard")
	runCmd.Flags().IntP("port", "p", 0, "dashboard port (default from config)")
	rootCmd.AddCommand(runCmd)
}
