package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestMatch_Basic verifies core gitignore pattern semantics.
func TestMatch_Basic(t *testing.T) {
	tests := []struct {
		name    string
		rules   []string
		path    string
		isDir   bool
		ignored bool
	}{
		{"extension glob", []string{"*.log"}, "debug.log", false, true},
		{"extension glob nested", []string{"*.log"}, "logs/debug.log", false, true},
		{"no match", []string{"*.log"}, "main.go", false, false},
		{"directory only on dir", []string{"build/"}, "build", true, true},
		{"directory only on file", []string{"build/"}, "build", false, false},
		{"descendant of excluded dir", []string{"build/"}, "build/out/app.o", false, true},
		{"anchored leading slash", []string{"/dist"}, "dist", true, true},
		{"anchored does not match nested", []string{"/dist"}, "pkg/dist", true, false},
		{"internal slash anchors", []string{"docs/api"}, "docs/api", false, true},
		{"internal slash no nested match", []string{"docs/api"}, "x/docs/api", false, false},
		{"double star prefix", []string{"**/node_modules/"}, "a/b/node_modules", true, true},
		{"double star middle", []string{"src/**/testdata"}, "src/a/b/testdata", true, true},
		{"question mark", []string{"file?.txt"}, "file1.txt", false, true},
		{"empty ruleset", nil, "anything", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := CompileRules(tt.rules)
			if got := rs.Match(tt.path, tt.isDir); got != tt.ignored {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.ignored)
			}
		})
	}
}

// TestMatch_NegationPrecedence verifies that a later negated rule
// overrides an earlier exclusion.
func TestMatch_NegationPrecedence(t *testing.T) {
	rs := CompileRules([]string{"*.log", "!keep.log"})

	if rs.Match("keep.log", false) {
		t.Error("keep.log should not be ignored after negation")
	}
	if !rs.Match("other.log", false) {
		t.Error("other.log should be ignored")
	}
}

// TestMatch_LastRuleWins verifies rule ordering: re-excluding after a
// negation restores the exclusion.
func TestMatch_LastRuleWins(t *testing.T) {
	rs := CompileRules([]string{"*.log", "!keep.log", "keep.log"})

	if !rs.Match("keep.log", false) {
		t.Error("keep.log should be ignored again after re-exclusion")
	}
}

// TestMatch_Deterministic verifies repeated evaluation yields the same
// verdict.
func TestMatch_Deterministic(t *testing.T) {
	rs := CompileRules([]string{"*.log", "!keep.log", "build/", "**/tmp"})
	paths := []string{"keep.log", "a.log", "build/x", "src/tmp", "main.go"}

	for _, p := range paths {
		first := rs.Match(p, false)
		for i := 0; i < 10; i++ {
			if rs.Match(p, false) != first {
				t.Fatalf("Match(%q) verdict changed between evaluations", p)
			}
		}
	}
}

// TestParseRule_SkipsCommentsAndBlanks verifies comment and blank line
// handling.
func TestParseRule_SkipsCommentsAndBlanks(t *testing.T) {
	for _, line := range []string{"", "   ", "# a comment", "#"} {
		if _, ok := ParseRule(line); ok {
			t.Errorf("ParseRule(%q) should be skipped", line)
		}
	}

	rs := CompileRules([]string{"# comment", "", "*.log"})
	if rs.Len() != 1 {
		t.Errorf("expected 1 compiled rule, got %d", rs.Len())
	}
}

// TestCompile_MissingFile verifies that a missing ignore file yields an
// empty RuleSet with no error.
func TestCompile_MissingFile(t *testing.T) {
	rs, err := Compile(t.TempDir())
	if err != nil {
		t.Fatalf("Compile() on dir without ignore file: %v", err)
	}
	if rs.Len() != 0 {
		t.Errorf("expected empty RuleSet, got %d rules", rs.Len())
	}
}

// TestCompile_ReadsFile verifies patterns load from .repomapignore.
func TestCompile_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := "# generated\n*.log\nbuild/\n!keep.log\n"
	if err := os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte(content), 0644); err != nil {
		t.Fatalf("writing ignore file: %v", err)
	}

	rs, err := Compile(dir)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if rs.Len() != 3 {
		t.Fatalf("expected 3 rules, got %d", rs.Len())
	}
	if !rs.Match("x.log", false) {
		t.Error("x.log should be ignored")
	}
	if rs.Match("keep.log", false) {
		t.Error("keep.log should not be ignored")
	}
}

// TestCompile_UnreadableFile verifies the ErrConfig degrade path.
func TestCompile_UnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	dir := t.TempDir()
	p := filepath.Join(dir, IgnoreFileName)
	if err := os.WriteFile(p, []byte("*.log\n"), 0000); err != nil {
		t.Fatalf("writing ignore file: %v", err)
	}

	rs, err := Compile(dir)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
	if rs == nil || rs.Len() != 0 {
		t.Error("expected usable empty RuleSet on config error")
	}
}

// TestEnsureIgnoreFile verifies default file creation and .gitignore
// seeding.
func TestEnsureIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("custom_dir/\n"), 0644); err != nil {
		t.Fatalf("writing .gitignore: %v", err)
	}

	p, err := EnsureIgnoreFile(dir)
	if err != nil {
		t.Fatalf("EnsureIgnoreFile() failed: %v", err)
	}
	if p != filepath.Join(dir, IgnoreFileName) {
		t.Errorf("unexpected ignore file path: %s", p)
	}

	rs, err := Compile(dir)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if !rs.Match("node_modules", true) {
		t.Error("default patterns should exclude node_modules")
	}
	if !rs.Match("custom_dir", true) {
		t.Error("patterns copied from .gitignore should be active")
	}

	// A second call must not rewrite an existing file.
	before, _ := os.ReadFile(p)
	if _, err := EnsureIgnoreFile(dir); err != nil {
		t.Fatalf("second EnsureIgnoreFile() failed: %v", err)
	}
	after, _ := os.ReadFile(p)
	if string(before) != string(after) {
		t.Error("EnsureIgnoreFile rewrote an existing ignore file")
	}
}
