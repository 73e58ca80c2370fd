package scan

import (
	"testing"
)

// TestPrimaryLanguage verifies dominant language selection.
func TestPrimaryLanguage(t *testing.T) {
	tests := []struct {
		name       string
		extensions map[string]int
		want       string
	}{
		{"go dominant", map[string]int{".go": 10, ".md": 3}, "Go"},
		{"python dominant", map[string]int{".py": 8, ".go": 2}, "Python"},
		{"nothing known", map[string]int{".bin": 5, "": 2}, "Unknown"},
		{"empty", map[string]int{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrimaryLanguage(tt.extensions); got != tt.want {
				t.Errorf("PrimaryLanguage() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestPrimaryLanguage_Deterministic verifies tie-breaking is stable.
func TestPrimaryLanguage_Deterministic(t *testing.T) {
	hist := map[string]int{".go": 5, ".py": 5}
	first := PrimaryLanguage(hist)
	for i := 0; i < 20; i++ {
		if got := PrimaryLanguage(hist); got != first {
			t.Fatalf("PrimaryLanguage flapped: %s then %s", first, got)
		}
	}
}

// TestAnalyzableLanguage verifies the analysis eligibility allow-list.
func TestAnalyzableLanguage(t *testing.T) {
	if lang, ok := AnalyzableLanguage("server.go"); !ok || lang != "Go" {
		t.Errorf("server.go: got (%s, %v)", lang, ok)
	}
	if lang, ok := AnalyzableLanguage("Widget.TSX"); !ok || lang != "TypeScript" {
		t.Errorf("Widget.TSX: got (%s, %v)", lang, ok)
	}
	if _, ok := AnalyzableLanguage("README.md"); ok {
		t.Error("markdown should not be analyzable")
	}
	if _, ok := AnalyzableLanguage("data.json"); ok {
		t.Error("json should not be analyzable")
	}
}

// TestDetectFrameworks verifies marker-file detection including go.mod
// requirement parsing.
func TestDetectFrameworks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "manage.py", "")
	writeFile(t, dir, "go.mod", "module example.com/app\n\ngo 1.22\n\nrequire github.com/gin-gonic/gin v1.10.0\n")
	writeFile(t, dir, "app.go", "package main\n")

	tree, _ := New(DefaultLimits()).Scan(dir, nil)
	got := DetectFrameworks(dir, tree)

	want := map[string]bool{"Django": true, "Gin": true}
	for _, fw := range got {
		delete(want, fw)
	}
	if len(want) != 0 {
		t.Errorf("DetectFrameworks() = %v, missing %v", got, want)
	}
}

// TestDetectFrameworks_NilTree verifies the nil guard.
func TestDetectFrameworks_NilTree(t *testing.T) {
	if got := DetectFrameworks("/nowhere", nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
