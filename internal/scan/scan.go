// Package scan builds file tree models of project directories.
//
// The scanner walks a directory depth-first under configurable safety
// limits, applying ignore rules as it descends. Scans never fail as a
// whole: unreadable subtrees become error-flagged placeholder nodes, and
// hitting a limit stops the affected branch and sets a truncation flag so
// callers can report partial results honestly.
package scan

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/repomap/repomap/internal/ignore"
	"github.com/repomap/repomap/internal/project"
)

// Default limit values, overridable through configuration.
const (
	DefaultMaxDepth          = 20
	DefaultMaxFiles          = 10000
	DefaultMaxLineCountBytes = 1 << 20 // 1 MiB per file for line counting

	// progressInterval controls how often the progress callback fires.
	progressInterval = 100
)

// Limits bounds the work a single scan may perform.
type Limits struct {
	// MaxDepth is the maximum directory nesting depth.
	MaxDepth int

	// MaxFiles is the maximum total number of files visited.
	MaxFiles int

	// MaxLineCountBytes caps how many bytes of a file are read when
	// computing its line count.
	MaxLineCountBytes int64
}

// DefaultLimits returns sensible defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:          DefaultMaxDepth,
		MaxFiles:          DefaultMaxFiles,
		MaxLineCountBytes: DefaultMaxLineCountBytes,
	}
}

// Totals aggregates counters across one scan.
type Totals struct {
	// Files and Lines count every scanned (non-ignored) file.
	Files int
	Lines int

	// Extensions is a histogram of lowercased file extensions,
	// e.g. ".go" -> 120. Files without an extension count under "".
	Extensions map[string]int

	// Truncated is set when any limit stopped the walk early.
	Truncated bool
}

// Scanner walks directory trees. The zero value is not usable; construct
// with New.
type Scanner struct {
	limits Limits

	// Progress, when non-nil, is called periodically with the number of
	// files scanned so far.
	Progress func(files int)
}

// New creates a Scanner with the given limits. Zero-valued limit fields
// fall back to defaults.
func New(limits Limits) *Scanner {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultMaxDepth
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultMaxFiles
	}
	if limits.MaxLineCountBytes <= 0 {
		limits.MaxLineCountBytes = DefaultMaxLineCountBytes
	}
	return &Scanner{limits: limits}
}

// scanState carries mutable counters through one scan run.
type scanState struct {
	totals Totals
	rules  *ignore.RuleSet
}

// Scan walks root and returns the resulting tree with aggregate totals.
//
// The returned node is the root directory itself. Scan does not return an
// error: unreadable directories are recorded as Unreadable nodes and limit
// hits as Truncated nodes. Only the caller can decide whether a fully
// unreadable root is fatal, by inspecting the root node's Unreadable flag.
func (s *Scanner) Scan(root string, rules *ignore.RuleSet) (*project.FileNode, Totals) {
	st := &scanState{
		totals: Totals{Extensions: make(map[string]int)},
		rules:  rules,
	}

	node := s.scanDir(root, "", 0, st)
	node.Name = filepath.Base(root)
	return node, st.totals
}

// scanDir scans one directory level. relPath is slash-separated and
// relative to the scan root; empty for the root itself.
func (s *Scanner) scanDir(dir, relPath string, depth int, st *scanState) *project.FileNode {
	node := &project.FileNode{
		Name: path.Base(relPath),
		Kind: project.KindDir,
	}

	if depth > s.limits.MaxDepth {
		node.Truncated = true
		st.totals.Truncated = true
		return node
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		node.Unreadable = true
		return node
	}

	// os.ReadDir returns entries sorted by filename, which gives the
	// stable sibling order successive scans rely on for diffing.
	for _, entry := range entries {
		name := entry.Name()
		childRel := name
		if relPath != "" {
			childRel = relPath + "/" + name
		}

		if st.rules.Match(childRel, entry.IsDir()) {
			continue
		}

		if entry.IsDir() {
			child := s.scanDir(filepath.Join(dir, name), childRel, depth+1, st)
			child.Name = name
			node.Children = append(node.Children, child)
			continue
		}

		if st.totals.Files >= s.limits.MaxFiles {
			node.Truncated = true
			st.totals.Truncated = true
			break
		}

		child := &project.FileNode{Name: name, Kind: project.KindFile}
		if info, err := entry.Info(); err == nil {
			child.Size = info.Size()
		} else {
			child.Unreadable = true
		}
		child.Lines = s.countLines(filepath.Join(dir, name))

		node.Children = append(node.Children, child)

		st.totals.Files++
		st.totals.Lines += child.Lines
		st.totals.Extensions[normalizeExt(name)]++

		if s.Progress != nil && st.totals.Files%progressInterval == 0 {
			s.Progress(st.totals.Files)
		}
	}

	return node
}

// countLines counts newline-terminated lines in a file, reading at most
// MaxLineCountBytes. Returns 0 for unreadable or empty files.
func (s *Scanner) countLines(p string) int {
	f, err := os.Open(p)
	if err != nil {
		return 0
	}
	defer f.Close()

	var (
		lines    int
		lastByte byte
		total    int64
		buf      = make([]byte, 32*1024)
		r        = io.LimitReader(f, s.limits.MaxLineCountBytes)
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			lastByte = buf[n-1]
			total += int64(n)
		}
		if err != nil {
			break
		}
	}
	// A trailing partial line still counts.
	if total > 0 && lastByte != '\n' {
		lines++
	}
	return lines
}

// normalizeExt returns the lowercased extension of a file name,
// including the dot, or "" when there is none.
func normalizeExt(name string) string {
	return strings.ToLower(path.Ext(name))
}
