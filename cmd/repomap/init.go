package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/repomap/repomap/internal/config"
	"github.com/repomap/repomap/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "daemon",
	Short:   "Interactively create a config file",
	Long: `Walk through the main settings and write repomap.yaml into the
state directory (~/.repomap by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := config.Defaults()

		apiKey := ""
		model := ""
		port := strconv.Itoa(defaults.DashboardPort)
		debounce := defaults.DebounceInterval.String()

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Anthropic API key").
					Description("Leave empty to use ANTHROPIC_API_KEY or run without AI analysis.").
					EchoMode(huh.EchoModePassword).
					Value(&apiKey),
				huh.NewInput().
					Title("Model").
					Description("Leave empty for the default model.").
					Value(&model),
				huh.NewInput().
					Title("Dashboard port").
					Value(&port).
					Validate(func(s string) error {
						if _, err := strconv.Atoi(s); err != nil {
							return fmt.Errorf("not a number: %s", s)
						}
						return nil
					}),
				huh.NewInput().
					Title("Debounce interval").
					Description("Quiet period before a change triggers re-analysis, e.g. 1s or 500ms.").
					Value(&debounce),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}

		portNum, _ := strconv.Atoi(port)
		cfg := map[string]interface{}{
			"dashboard_port":    portNum,
			"debounce_interval": debounce,
		}
		if apiKey != "" {
			cfg["api_key"] = apiKey
		}
		if model != "" {
			cfg["model"] = model
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(defaults.StateDir, 0755); err != nil {
			return err
		}
		path := filepath.Join(defaults.StateDir, config.ConfigName+".yaml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return err
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
