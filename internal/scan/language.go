package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/repomap/repomap/internal/project"
)

// languageExtensions maps language names to the file extensions that
// identify them.
var languageExtensions = map[string][]string{
	"Python":     {".py", ".pyw", ".pyi"},
	"JavaScript": {".js", ".jsx", ".mjs"},
	"TypeScript": {".ts", ".tsx"},
	"Java":       {".java"},
	"C++":        {".cpp", ".cc", ".cxx", ".hpp"},
	"C":          {".c", ".h"},
	"C#":         {".cs"},
	"Ruby":       {".rb"},
	"PHP":        {".php"},
	"Go":         {".go"},
	"Rust":       {".rs"},
	"Swift":      {".swift"},
	"Kotlin":     {".kt", ".kts"},
	"HTML":       {".html", ".htm"},
	"CSS":        {".css", ".scss", ".sass", ".less"},
	"Shell":      {".sh", ".bash", ".zsh"},
	"YAML":       {".yml", ".yaml"},
	"Markdown":   {".md", ".markdown"},
}

// analyzableExtensions maps extensions eligible for content analysis to
// their language tag. Markup and data formats are deliberately absent.
var analyzableExtensions = map[string]string{
	".py":    "Python",
	".pyw":   "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".cpp":   "C++",
	".cc":    "C++",
	".cxx":   "C++",
	".c":     "C",
	".cs":    "C#",
	".rb":    "Ruby",
	".php":   "PHP",
	".go":    "Go",
	".rs":    "Rust",
	".swift": "Swift",
	".kt":    "Kotlin",
	".kts":   "Kotlin",
}

// frameworkMarkers maps framework names to root-level marker files.
var frameworkMarkers = map[string][]string{
	"React":   {"package.json"},
	"Angular": {"angular.json"},
	"Vue":     {"vue.config.js"},
	"Next.js": {"next.config.js"},
	"Nuxt":    {"nuxt.config.js"},
	"Django":  {"manage.py"},
	"Flask":   {"app.py"},
	"Spring":  {"pom.xml", "build.gradle"},
	"Laravel": {"artisan"},
	"Rails":   {"Gemfile", "config.ru"},
	"Rust":    {"Cargo.toml"},
}

// goModuleFrameworks maps well-known Go module prefixes to framework
// names, looked up in go.mod require blocks.
var goModuleFrameworks = map[string]string{
	"github.com/gin-gonic/gin":     "Gin",
	"github.com/labstack/echo":     "Echo",
	"github.com/gofiber/fiber":     "Fiber",
	"github.com/spf13/cobra":       "Cobra",
	"github.com/gorilla/mux":       "Gorilla",
	"google.golang.org/grpc":       "gRPC",
	"github.com/charmbracelet/bubbletea": "Bubble Tea",
}

// AnalyzableLanguage returns the language tag for a file name eligible
// for content analysis, or ok=false for files that should not be sent to
// the collaborator.
func AnalyzableLanguage(name string) (string, bool) {
	lang, ok := analyzableExtensions[normalizeExt(name)]
	return lang, ok
}

// PrimaryLanguage picks the dominant language from an extension
// histogram. Returns "Unknown" when nothing matches a known language.
//
// Ties break alphabetically so the result is deterministic.
func PrimaryLanguage(extensions map[string]int) string {
	scores := make(map[string]int)
	for lang, exts := range languageExtensions {
		for _, ext := range exts {
			scores[lang] += extensions[ext]
		}
	}

	best, bestScore := "Unknown", 0
	langs := make([]string, 0, len(scores))
	for lang := range scores {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if scores[lang] > bestScore {
			best, bestScore = lang, scores[lang]
		}
	}
	return best
}

// DetectFrameworks identifies frameworks from root-level marker files in
// the scanned tree, enriched for Go projects by parsing go.mod.
func DetectFrameworks(root string, tree *project.FileNode) []string {
	if tree == nil {
		return nil
	}

	present := make(map[string]bool)
	for _, child := range tree.Children {
		if child.Kind == project.KindFile {
			present[child.Name] = true
		}
	}

	var detected []string
	names := make([]string, 0, len(frameworkMarkers))
	for name := range frameworkMarkers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, marker := range frameworkMarkers[name] {
			if present[marker] {
				detected = append(detected, name)
				break
			}
		}
	}

	if present["go.mod"] {
		detected = append(detected, goFrameworks(filepath.Join(root, "go.mod"))...)
	}

	return detected
}

// goFrameworks parses a go.mod file and reports known frameworks among
// its direct requirements. Parse failures yield no detections.
func goFrameworks(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, req := range f.Require {
		if req.Indirect {
			continue
		}
		for prefix, name := range goModuleFrameworks {
			if !seen[name] && (req.Mod.Path == prefix || strings.HasPrefix(req.Mod.Path, prefix+"/")) {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
