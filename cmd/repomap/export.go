package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/repomap/repomap/internal/store"
)

var exportCmd = &cobra.Command{
	Use:     "export <path>",
	GroupID: "projects",
	Short:   "Export a project's last snapshot",
	Long: `Write the last saved analysis snapshot as structured data.

Formats: json (default), yaml, toml. Output goes to stdout unless
--output names a file.

Examples:
  repomap export ~/src/myproject
  repomap export ~/src/myproject --format yaml -o snapshot.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		st, err := store.Open(settings.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		info, err := st.LoadSnapshot(path)
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("no snapshot for %s (is it tracked and analyzed?)", path)
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "yaml":
			enc := yaml.NewEncoder(w)
			defer enc.Close()
			return enc.Encode(info)
		case "toml":
			return toml.NewEncoder(w).Encode(info)
		default:
			return fmt.Errorf("unknown format %q (want json, yaml, or toml)", format)
		}
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "output format: json, yaml, toml")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
