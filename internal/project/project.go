// Package project provides the shared data model for tracked repositories.
//
// A project.Info is an immutable snapshot of one analysis run: the scanned
// file tree, aggregate counters, language/framework detection results, and
// per-file analysis output. Snapshots are built by exactly one worker and
// published wholesale; nothing mutates an Info after it has been handed to
// the tracker.
package project

import (
	"time"
)

// Status represents the processing state of a tracked project.
type Status string

const (
	// StatusIdle indicates the project is registered but not yet analyzed.
	StatusIdle Status = "idle"
	// StatusScanning indicates the file tree scan is in progress.
	StatusScanning Status = "scanning"
	// StatusAnalyzing indicates per-file code analysis is in progress.
	StatusAnalyzing Status = "analyzing"
	// StatusDone indicates the last analysis completed successfully.
	StatusDone Status = "done"
	// StatusError indicates the last analysis failed as a whole.
	StatusError Status = "error"
)

// NodeKind distinguishes files from directories in the scanned tree.
type NodeKind int

const (
	// KindFile is a regular file.
	KindFile NodeKind = iota
	// KindDir is a directory.
	KindDir
)

// String returns a human-readable representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "unknown"
	}
}

// FileNode is one entry in a scanned file tree.
//
// Children are kept in stable lexicographic order so that successive scans
// of an unchanged tree produce identical output. A FileNode tree is owned
// exclusively by the Info that contains it.
type FileNode struct {
	// Name is the path segment, not the full path.
	Name string `json:"name"`
	Kind NodeKind `json:"kind"`

	// Size is the file size in bytes. Zero for directories.
	Size int64 `json:"size,omitempty"`

	// Lines is a best-effort line count, bounded by the scanner's
	// per-file byte limit. Zero for directories.
	Lines int `json:"lines,omitempty"`

	// Children holds directory entries in lexicographic order.
	// Nil for files.
	Children []*FileNode `json:"children,omitempty"`

	// Unreadable marks a node whose contents could not be read
	// (permission denied, vanished mid-scan). The node is retained
	// as an empty placeholder rather than failing the scan.
	Unreadable bool `json:"unreadable,omitempty"`

	// Truncated marks a directory whose scan stopped early because
	// a depth or file-count limit was hit.
	Truncated bool `json:"truncated,omitempty"`
}

// Child returns the named child of a directory node, or nil.
func (n *FileNode) Child(name string) *FileNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits n and every descendant in depth-first order.
// The walk stops early if fn returns false.
func (n *FileNode) Walk(fn func(path string, node *FileNode) bool) {
	n.walk("", fn)
}

func (n *FileNode) walk(prefix string, fn func(string, *FileNode) bool) bool {
	path := n.Name
	if prefix != "" {
		path = prefix + "/" + n.Name
	}
	if !fn(path, n) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(path, fn) {
			return false
		}
	}
	return true
}

// FunctionInfo describes one function extracted by code analysis.
type FunctionInfo struct {
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Line      int    `json:"line,omitempty"`
	// Description is a short free-text summary of the function's purpose.
	Description string `json:"description,omitempty"`
}

// ClassInfo describes one class or type extracted by code analysis.
type ClassInfo struct {
	Name        string `json:"name"`
	Line        int    `json:"line,omitempty"`
	Description string `json:"description,omitempty"`
}

// AnalysisResult holds the per-file output of the content-analysis
// collaborator. Results are independent: a failed file carries Err and
// empty extraction lists, and never affects sibling results.
type AnalysisResult struct {
	// Path is the file path relative to the project root.
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`

	Functions   []FunctionInfo `json:"functions,omitempty"`
	Classes     []ClassInfo    `json:"classes,omitempty"`
	Description string         `json:"description,omitempty"`

	// Err holds the failure message when analysis of this file failed.
	// Empty on success.
	Err string `json:"error,omitempty"`
}

// Failed reports whether analysis of this file failed.
func (r *AnalysisResult) Failed() bool {
	return r.Err != ""
}

// Info is the published snapshot of one project analysis.
//
// An Info is immutable once published. The tracker replaces the whole
// value on every successful re-analysis; readers always observe either
// the previous complete snapshot or the new one.
type Info struct {
	// Name is the base name of the project root directory.
	Name string `json:"name"`
	// Root is the absolute project root path.
	Root string `json:"root"`

	Status Status `json:"status"`

	// Tree is the scanned file tree root. Nil until the first scan
	// completes.
	Tree *FileNode `json:"tree,omitempty"`

	// TotalFiles and TotalLines aggregate over the scanned tree.
	TotalFiles int `json:"total_files"`
	TotalLines int `json:"total_lines"`

	// Truncated is set when any scan limit stopped the walk early,
	// so the counters above are honest lower bounds.
	Truncated bool `json:"truncated,omitempty"`

	// Languages maps extension histogram entries, e.g. ".go" -> 120.
	Languages map[string]int `json:"languages,omitempty"`

	// PrimaryLanguage is the detected dominant language, or "Unknown".
	PrimaryLanguage string `json:"primary_language"`

	// Frameworks lists frameworks detected from marker files.
	Frameworks []string `json:"frameworks,omitempty"`

	// Results holds per-file analysis output, ordered by path.
	Results []AnalysisResult `json:"results,omitempty"`

	// AnalyzedFiles counts files with successful analysis results.
	AnalyzedFiles int `json:"analyzed_files"`
	// TotalFunctions counts functions across successful results.
	TotalFunctions int `json:"total_functions"`

	// AnalysisEnabled reports whether the content-analysis collaborator
	// was available during this run.
	AnalysisEnabled bool `json:"analysis_enabled"`

	// WatchLive is false when the filesystem subscription could not be
	// established; the project stays trackable but loses live refresh.
	WatchLive bool `json:"watch_live"`

	// LastAnalyzed is the completion time of the last successful run.
	LastAnalyzed time.Time `json:"last_analyzed,omitzero"`

	// LastError holds the message of the last whole-project failure.
	LastError string `json:"last_error,omitempty"`
}

// Clone returns a shallow copy of the Info with fresh top-level slices
// and maps. The tree and per-result slices are shared: both are immutable
// after publication, so sharing is safe.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	out := *i
	if i.Languages != nil {
		out.Languages = make(map[string]int, len(i.Languages))
		for k, v := range i.Languages {
			out.Languages[k] = v
		}
	}
	if i.Frameworks != nil {
		out.Frameworks = append([]string(nil), i.Frameworks...)
	}
	if i.Results != nil {
		out.Results = append([]AnalysisResult(nil), i.Results...)
	}
	return &out
}
