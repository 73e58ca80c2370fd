// Package report renders a project snapshot as repomap.md, a
// human-readable map of the repository written into the project root.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/repomap/repomap/internal/ignore"
	"github.com/repomap/repomap/internal/project"
)

// FileName is the generated document's name in the project root.
const FileName = "repomap.md"

// maxDistributionRows caps the file-type table at the most common types.
const maxDistributionRows = 10

// Generate renders the snapshot as markdown.
func Generate(info *project.Info) string {
	var b strings.Builder

	analysisState := "❌ Disabled"
	if info.AnalysisEnabled {
		analysisState = "✅ Enabled"
	}
	frameworks := "None detected"
	if len(info.Frameworks) > 0 {
		frameworks = strings.Join(info.Frameworks, ", ")
	}

	fmt.Fprintf(&b, "# %s\n\n", info.Name)
	b.WriteString("## Project Context\n")
	fmt.Fprintf(&b, "- **Language**: %s\n", info.PrimaryLanguage)
	fmt.Fprintf(&b, "- **Framework**: %s\n", frameworks)
	fmt.Fprintf(&b, "- **Total Files**: %d\n", info.TotalFiles)
	fmt.Fprintf(&b, "- **Total Lines**: %d\n", info.TotalLines)
	fmt.Fprintf(&b, "- **AI Analysis**: %s\n", analysisState)
	fmt.Fprintf(&b, "- **Analyzed Files**: %d\n", info.AnalyzedFiles)
	fmt.Fprintf(&b, "- **Total Functions**: %d\n", info.TotalFunctions)
	if !info.LastAnalyzed.IsZero() {
		fmt.Fprintf(&b, "- **Last Updated**: %s\n", info.LastAnalyzed.Format("2006-01-02 15:04:05"))
	}
	if info.Truncated {
		b.WriteString("- **Note**: scan limits were hit; counts are lower bounds\n")
	}

	fmt.Fprintf(&b, `
## Ignore Configuration
This project uses a %s file that contains patterns from the original
.gitignore plus any additional patterns to exclude from analysis.

Edit %s to customize what gets included in your repomap.
`, "`"+ignore.IgnoreFileName+"`", "`"+ignore.IgnoreFileName+"`")

	b.WriteString("\n## Project Structure\n```\n")
	fmt.Fprintf(&b, "%s/\n", info.Name)
	if info.Tree != nil {
		renderTree(&b, info.Tree.Children, "", "", analysisByPath(info))
	}
	b.WriteString("```\n")

	writeDistribution(&b, info)
	writeAnalysis(&b, info)

	return b.String()
}

// WriteFile renders the snapshot and writes repomap.md into the
// project root.
func WriteFile(root string, info *project.Info) error {
	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, []byte(Generate(info)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", FileName, err)
	}
	return nil
}

// Remove deletes a previously generated repomap.md. Idempotent.
func Remove(root string) error {
	err := os.Remove(filepath.Join(root, FileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", FileName, err)
	}
	return nil
}

// analysisByPath indexes successful per-file results by relative path.
func analysisByPath(info *project.Info) map[string]*project.AnalysisResult {
	out := make(map[string]*project.AnalysisResult, len(info.Results))
	for i := range info.Results {
		r := &info.Results[i]
		if !r.Failed() {
			out[r.Path] = r
		}
	}
	return out
}

// renderTree writes the tree with box-drawing connectors.
func renderTree(b *strings.Builder, nodes []*project.FileNode, prefix, pathPrefix string, analyzed map[string]*project.AnalysisResult) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		connector, childPrefix := "├── ", prefix+"│   "
		if last {
			connector, childPrefix = "└── ", prefix+"    "
		}

		path := n.Name
		if pathPrefix != "" {
			path = pathPrefix + "/" + n.Name
		}

		if n.Kind == project.KindDir {
			fmt.Fprintf(b, "%s%s%s/\n", prefix, connector, n.Name)
			renderTree(b, n.Children, childPrefix, path, analyzed)
			continue
		}

		var extra string
		if r, ok := analyzed[path]; ok {
			if len(r.Functions) > 0 {
				extra = fmt.Sprintf(" (%d functions)", len(r.Functions))
			}
			extra += " 🤖"
		}
		fmt.Fprintf(b, "%s%s%s (%d lines)%s\n", prefix, connector, n.Name, n.Lines, extra)
	}
}

// writeDistribution renders the file-type table, most common first.
func writeDistribution(b *strings.Builder, info *project.Info) {
	b.WriteString("\n## File Type Distribution\n")
	if len(info.Languages) == 0 || info.TotalFiles == 0 {
		return
	}

	type extCount struct {
		ext   string
		count int
	}
	entries := make([]extCount, 0, len(info.Languages))
	for ext, count := range info.Languages {
		entries = append(entries, extCount{ext, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].ext < entries[j].ext
	})
	if len(entries) > maxDistributionRows {
		entries = entries[:maxDistributionRows]
	}

	for _, e := range entries {
		ext := e.ext
		if ext == "" {
			ext = "no extension"
		}
		pct := float64(e.count) / float64(info.TotalFiles) * 100
		fmt.Fprintf(b, "- **%s**: %d files (%.1f%%)\n", ext, e.count, pct)
	}
}

// writeAnalysis renders the AI section, or a placeholder when analysis
// is disabled.
func writeAnalysis(b *strings.Builder, info *project.Info) {
	if !info.AnalysisEnabled || len(info.Results) == 0 {
		b.WriteString(`
## Code Analysis
*AI-powered code analysis is available. Set your Anthropic API key to
enable automatic function extraction and code insights.*

*When enabled, this section includes:*
- Function definitions with signatures and descriptions
- Class structures and methods
- Detailed file-by-file analysis
`)
		return
	}

	b.WriteString("\n## 🤖 AI Code Analysis\n\n### Function Overview\n")

	results := make([]*project.AnalysisResult, 0, len(info.Results))
	for i := range info.Results {
		if !info.Results[i].Failed() {
			results = append(results, &info.Results[i])
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	for _, r := range results {
		if len(r.Functions) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n#### %s\n", r.Path)
		if r.Description != "" {
			fmt.Fprintf(b, "*%s*\n\n", r.Description)
		}

		funcs := append([]project.FunctionInfo(nil), r.Functions...)
		sort.Slice(funcs, func(i, j int) bool { return funcs[i].Line < funcs[j].Line })
		for _, f := range funcs {
			display := f.Signature
			if display == "" {
				display = f.Name
			}
			if f.Line > 0 {
				fmt.Fprintf(b, "**%s** (line %d)\n", display, f.Line)
			} else {
				fmt.Fprintf(b, "**%s**\n", display)
			}
			if f.Description != "" {
				fmt.Fprintf(b, "- %s\n", f.Description)
			}
			b.WriteString("\n")
		}
	}

	var hasClasses bool
	for _, r := range results {
		if len(r.Classes) > 0 {
			hasClasses = true
			break
		}
	}
	if !hasClasses {
		return
	}

	b.WriteString("\n### Class Overview\n")
	for _, r := range results {
		if len(r.Classes) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n#### %s\n", r.Path)

		classes := append([]project.ClassInfo(nil), r.Classes...)
		sort.Slice(classes, func(i, j int) bool { return classes[i].Line < classes[j].Line })
		for _, c := range classes {
			if c.Line > 0 {
				fmt.Fprintf(b, "**%s** (line %d)\n", c.Name, c.Line)
			} else {
				fmt.Fprintf(b, "**%s**\n", c.Name)
			}
			if c.Description != "" {
				fmt.Fprintf(b, "- %s\n", c.Description)
			}
			b.WriteString("\n")
		}
	}
}
