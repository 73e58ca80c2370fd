// Package ignore provides gitignore-style pattern matching for project scans.
//
// Patterns are loaded from a .repomapignore file at the project root, one
// pattern per line. The syntax follows gitignore: `#` comments, blank lines,
// `!` negation, `/` anchoring, a trailing `/` for directory-only rules, and
// `**` for matching any number of path segments. Later rules override earlier
// ones on the same path.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-project ignore file read by Compile.
const IgnoreFileName = ".repomapignore"

// Rule is a single compiled ignore pattern. Immutable once compiled.
type Rule struct {
	// Original is the pattern text as written, for diagnostics.
	Original string

	segments []string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Negated reports whether the rule re-includes paths excluded by an
// earlier rule.
func (r Rule) Negated() bool { return r.negated }

// RuleSet is an ordered sequence of rules. The zero value matches nothing.
type RuleSet struct {
	rules []Rule
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// ParseRule compiles a single pattern line.
// Returns ok=false for blank lines and comments.
func ParseRule(line string) (Rule, bool) {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false
	}

	r := Rule{Original: line}

	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		// A slash anywhere else also anchors the pattern to the root,
		// per gitignore semantics.
		r.anchored = true
	}
	if line == "" {
		return Rule{}, false
	}

	r.segments = strings.Split(line, "/")
	return r, true
}

// CompileRules builds a RuleSet from raw pattern lines, skipping blanks
// and comments.
func CompileRules(lines []string) *RuleSet {
	rs := &RuleSet{}
	for _, line := range lines {
		if r, ok := ParseRule(line); ok {
			rs.rules = append(rs.rules, r)
		}
	}
	return rs
}

// Compile loads the ignore file at the project root.
//
// A missing ignore file yields an empty RuleSet and no error. An unreadable
// file yields an empty RuleSet and an error wrapping ErrConfig: callers are
// expected to log and continue rather than abort.
func Compile(root string) (*RuleSet, error) {
	p := filepath.Join(root, IgnoreFileName)

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &RuleSet{}, nil
		}
		return &RuleSet{}, fmt.Errorf("%w: reading %s: %v", ErrConfig, p, err)
	}
	defer f.Close()

	rs := &RuleSet{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if r, ok := ParseRule(scanner.Text()); ok {
			rs.rules = append(rs.rules, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return &RuleSet{}, fmt.Errorf("%w: reading %s: %v", ErrConfig, p, err)
	}
	return rs, nil
}

// Match reports whether relPath should be ignored.
//
// relPath must be slash-separated and relative to the project root.
// Rules are applied in order and the last matching rule wins; a path is
// ignored when the final verdict is "exclude". A rule that matches a
// directory also matches everything beneath it, so event paths inside an
// excluded directory report ignored without the scanner ever visiting them.
func (rs *RuleSet) Match(relPath string, isDir bool) bool {
	if rs == nil || len(rs.rules) == 0 {
		return false
	}

	relPath = strings.Trim(path.Clean(filepath.ToSlash(relPath)), "/")
	if relPath == "" || relPath == "." {
		return false
	}
	segs := strings.Split(relPath, "/")

	ignored := false
	for _, r := range rs.rules {
		if r.matches(segs, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

// matches reports whether the rule applies to the path given by segs.
func (r Rule) matches(segs []string, isDir bool) bool {
	// Try the full path first, then every ancestor directory: matching
	// a directory implies matching all of its descendants.
	if r.matchHere(segs, isDir) {
		return true
	}
	for i := len(segs) - 1; i > 0; i-- {
		if r.matchHere(segs[:i], true) {
			return true
		}
	}
	return false
}

func (r Rule) matchHere(segs []string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.anchored {
		return matchSegments(r.segments, segs)
	}
	// Unanchored patterns may begin at any depth.
	return matchSegments(append([]string{"**"}, r.segments...), segs)
}

// matchSegments matches pattern segments against path segments.
// "**" consumes zero or more path segments; other segments use glob
// syntax via path.Match.
func matchSegments(pattern, segs []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], segs) {
			return true
		}
		if len(segs) > 0 {
			return matchSegments(pattern, segs[1:])
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], segs[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], segs[1:])
}
