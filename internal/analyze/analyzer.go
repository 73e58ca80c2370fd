// Package analyze orchestrates full project analysis runs.
//
// One run ensures an ignore file exists, compiles ignore rules, scans the
// file tree, detects languages and frameworks, and feeds eligible files to
// the content-analysis collaborator. Every step is independently fault
// tolerant: only a fully unreadable project root fails the run as a whole.
//
// The analyzer itself is not concerned with scheduling. The tracker
// guarantees at most one run per project is active at a time.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/repomap/repomap/internal/ignore"
	"github.com/repomap/repomap/internal/project"
	"github.com/repomap/repomap/internal/scan"
)

// Default analysis limits, overridable through configuration.
const (
	DefaultMaxAnalyzableFileSize = 1 << 20 // 1 MiB
	DefaultMaxAnalyzedFiles      = 100
	DefaultFileTimeout           = 30 * time.Second
)

// Config holds configuration for an Analyzer.
type Config struct {
	// Limits bounds the tree scan.
	Limits scan.Limits

	// MaxAnalyzableFileSize is the per-file size ceiling for content
	// analysis. Larger files are scanned but not analyzed.
	MaxAnalyzableFileSize int64

	// MaxAnalyzedFiles caps how many files one run sends to the
	// collaborator.
	MaxAnalyzedFiles int

	// FileTimeout bounds each collaborator call. Exceeding it fails
	// that file only.
	FileTimeout time.Duration

	// Logger for analyzer activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits:                scan.DefaultLimits(),
		MaxAnalyzableFileSize: DefaultMaxAnalyzableFileSize,
		MaxAnalyzedFiles:      DefaultMaxAnalyzedFiles,
		FileTimeout:           DefaultFileTimeout,
		Logger:                log.New(os.Stderr, "[analyze] ", log.LstdFlags),
	}
}

// Progress receives coarse liveness notifications during a run: a short
// stage description and a percent estimate (-1 when unknown).
type Progress func(stage string, percent int)

// Analyzer produces project.Info snapshots.
type Analyzer struct {
	config *Config
	collab Collaborator
}

// New creates an Analyzer. collab may be nil to disable content analysis.
func New(collab Collaborator, config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAnalyzableFileSize <= 0 {
		config.MaxAnalyzableFileSize = DefaultMaxAnalyzableFileSize
	}
	if config.MaxAnalyzedFiles <= 0 {
		config.MaxAnalyzedFiles = DefaultMaxAnalyzedFiles
	}
	if config.FileTimeout <= 0 {
		config.FileTimeout = DefaultFileTimeout
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[analyze] ", log.LstdFlags)
	}
	return &Analyzer{config: config, collab: collab}
}

// candidate is one file selected for content analysis.
type candidate struct {
	relPath  string
	language string
	size     int64
}

// Analyze runs a complete analysis of the project at root and returns an
// immutable snapshot. progress may be nil.
//
// The returned error is non-nil only when the run failed as a whole
// (unreadable root or canceled context); per-node and per-file failures
// are recorded inside the snapshot instead.
func (a *Analyzer) Analyze(ctx context.Context, root string, progress Progress) (*project.Info, error) {
	report := func(stage string, pct int) {
		if progress != nil {
			progress(stage, pct)
		}
	}

	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootUnreadable, root)
	}

	// Step 1: ignore file. Failure degrades to "no ignore rules".
	if _, err := ignore.EnsureIgnoreFile(root); err != nil {
		a.config.Logger.Printf("Warning: %v", err)
	}

	// Step 2: compile rules. An unreadable file degrades the same way.
	rules, err := ignore.Compile(root)
	if err != nil {
		a.config.Logger.Printf("Warning: %v", err)
	}

	// Step 3: scan the tree.
	report("Scanning directory structure", -1)
	scanner := scan.New(a.config.Limits)
	scanner.Progress = func(files int) {
		report(fmt.Sprintf("Scanned %d files", files), -1)
	}
	tree, totals := scanner.Scan(root, rules)
	if tree.Unreadable {
		return nil, fmt.Errorf("%w: %s", ErrRootUnreadable, root)
	}

	// Step 4: language and framework heuristics.
	report("Detecting languages and frameworks", -1)
	info := &project.Info{
		Name:            filepath.Base(root),
		Root:            root,
		Status:          project.StatusDone,
		Tree:            tree,
		TotalFiles:      totals.Files,
		TotalLines:      totals.Lines,
		Truncated:       totals.Truncated,
		Languages:       totals.Extensions,
		PrimaryLanguage: scan.PrimaryLanguage(totals.Extensions),
		Frameworks:      scan.DetectFrameworks(root, tree),
		AnalysisEnabled: a.collab != nil && a.collab.Available(),
		WatchLive:       true,
	}

	// Step 5: per-file content analysis.
	if info.AnalysisEnabled {
		if err := a.analyzeFiles(ctx, root, tree, info, report); err != nil {
			return nil, err
		}
	}

	info.LastAnalyzed = time.Now()
	report("Analysis complete", 100)
	return info, nil
}

// analyzeFiles runs the collaborator over eligible files. Individual
// failures become error-marked results; only context cancellation aborts.
func (a *Analyzer) analyzeFiles(ctx context.Context, root string, tree *project.FileNode, info *project.Info, report Progress) error {
	candidates := a.collectCandidates(tree)
	if len(candidates) == 0 {
		return nil
	}

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		report(fmt.Sprintf("Analyzing %s (%d/%d)", filepath.Base(c.relPath), i+1, len(candidates)),
			i*100/len(candidates))

		result := a.analyzeOne(ctx, root, c)
		info.Results = append(info.Results, *result)

		if result.Failed() {
			a.config.Logger.Printf("Analysis failed for %s: %s", c.relPath, result.Err)
			continue
		}
		info.AnalyzedFiles++
		info.TotalFunctions += len(result.Functions)
	}
	return nil
}

// analyzeOne calls the collaborator for a single file under the per-file
// timeout and converts any failure into an error-marked result.
func (a *Analyzer) analyzeOne(ctx context.Context, root string, c candidate) *project.AnalysisResult {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(c.relPath)))
	if err != nil {
		return &project.AnalysisResult{Path: c.relPath, Language: c.language, Err: err.Error()}
	}

	fctx, cancel := context.WithTimeout(ctx, a.config.FileTimeout)
	defer cancel()

	result, err := a.collab.AnalyzeFile(fctx, c.relPath, c.language, string(content))
	if err != nil {
		return &project.AnalysisResult{Path: c.relPath, Language: c.language, Err: err.Error()}
	}
	result.Path = c.relPath
	result.Language = c.language
	return result
}

// collectCandidates walks the scanned tree and selects files under the
// eligibility predicate, in tree (path) order, capped at MaxAnalyzedFiles.
func (a *Analyzer) collectCandidates(tree *project.FileNode) []candidate {
	var out []candidate
	for _, child := range tree.Children {
		out = a.collect(child, child.Name, out)
		if len(out) >= a.config.MaxAnalyzedFiles {
			break
		}
	}
	if len(out) > a.config.MaxAnalyzedFiles {
		out = out[:a.config.MaxAnalyzedFiles]
	}
	return out
}

func (a *Analyzer) collect(node *project.FileNode, relPath string, out []candidate) []candidate {
	if len(out) >= a.config.MaxAnalyzedFiles {
		return out
	}
	if node.Kind == project.KindDir {
		for _, child := range node.Children {
			out = a.collect(child, relPath+"/"+child.Name, out)
		}
		return out
	}
	lang, ok := scan.AnalyzableLanguage(node.Name)
	if !ok || node.Unreadable || node.Size > a.config.MaxAnalyzableFileSize {
		return out
	}
	return append(out, candidate{relPath: relPath, language: lang, size: node.Size})
}

// IsCanceled reports whether an Analyze error was caused by context
// cancellation rather than a project failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
