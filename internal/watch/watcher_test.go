package watch

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/repomap/repomap/internal/ignore"
)

func testConfig(interval time.Duration) *Config {
	return &Config{
		DebounceInterval: interval,
		Logger:           log.New(io.Discard, "", 0),
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// TestWatcher_StartStop verifies clean lifecycle transitions.
func TestWatcher_StartStop(t *testing.T) {
	w, err := New(t.TempDir(), nil, func() {}, testConfig(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if w.IsRunning() {
		t.Error("watcher should not be running before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !w.IsRunning() {
		t.Error("watcher should be running after Start")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher should not be running after Stop")
	}

	// Stop is idempotent.
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
}

// TestWatcher_DebouncesBurst verifies that two rapid edits 50ms apart
// with a 300ms quiet interval produce exactly one change callback.
func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.go")
	if err := os.WriteFile(target, []byte("package a\n"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	var changes int32
	w, err := New(dir, nil, func() { atomic.AddInt32(&changes, 1) }, testConfig(300*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(target, []byte("package a // one\n"), 0644); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(target, []byte("package a // two\n"), 0644); err != nil {
		t.Fatalf("second edit: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&changes) >= 1 }) {
		t.Fatal("change callback never fired")
	}

	// Let any extra (incorrect) callbacks land.
	time.Sleep(500 * time.Millisecond)

	if got := atomic.LoadInt32(&changes); got != 1 {
		t.Errorf("expected 1 coalesced callback, got %d", got)
	}
}

// TestWatcher_FiltersIgnoredPaths verifies that events under excluded
// paths do not trigger the callback.
func TestWatcher_FiltersIgnoredPaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "build"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	rules := ignore.CompileRules([]string{"build/", "*.log"})

	var changes int32
	w, err := New(dir, rules, func() { atomic.AddInt32(&changes, 1) }, testConfig(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "noise.log"), []byte("x\n"), 0644); err != nil {
		t.Fatalf("writing ignored file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&changes); got != 0 {
		t.Errorf("ignored file event triggered %d callbacks", got)
	}

	// A non-ignored file still gets through.
	if err := os.WriteFile(filepath.Join(dir, "code.go"), []byte("package x\n"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&changes) == 1 }) {
		t.Error("non-ignored file event should trigger the callback")
	}
}

// TestWatcher_DetectsNewDirectory verifies events inside directories
// created after Start are still observed.
func TestWatcher_DetectsNewDirectory(t *testing.T) {
	dir := t.TempDir()

	var changes int32
	w, err := New(dir, nil, func() { atomic.AddInt32(&changes, 1) }, testConfig(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "newpkg")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&changes) >= 1 }) {
		t.Fatal("directory creation should trigger the callback")
	}

	// Quiesce, then touch a file inside the new directory.
	time.Sleep(200 * time.Millisecond)
	before := atomic.LoadInt32(&changes)
	if err := os.WriteFile(filepath.Join(sub, "inner.go"), []byte("package newpkg\n"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&changes) > before }) {
		t.Error("file event inside new directory should trigger the callback")
	}
}

// TestWatcher_NoCallbacksAfterStop verifies the cancellation guarantee.
func TestWatcher_NoCallbacksAfterStop(t *testing.T) {
	dir := t.TempDir()

	var changes int32
	w, err := New(dir, nil, func() { atomic.AddInt32(&changes, 1) }, testConfig(200*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// Generate an event, then stop inside the quiet interval.
	if err := os.WriteFile(filepath.Join(dir, "late.go"), []byte("package x\n"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	time.Sleep(400 * time.Millisecond)
	if got := atomic.LoadInt32(&changes); got != 0 {
		t.Errorf("callback fired after Stop: %d", got)
	}
}
