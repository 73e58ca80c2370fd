// Package tracker coordinates project registration, filesystem watching,
// and background analysis against a UI-facing message bus.
//
// The tracker owns the only mutable shared structure in the system: the
// map from project root to its entry. The lock around that map is held
// for pointer swaps and flag flips only, never across I/O, so snapshot
// reads never block on an in-flight analysis.
//
// Per project the tracker guarantees at most one analysis run in flight.
// Change signals arriving during a run coalesce into a single trailing
// re-run instead of queueing one run per signal.
package tracker

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/repomap/repomap/internal/analyze"
	"github.com/repomap/repomap/internal/ignore"
	"github.com/repomap/repomap/internal/project"
	"github.com/repomap/repomap/internal/watch"
)

// Analyzer produces project snapshots. Satisfied by *analyze.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, root string, progress analyze.Progress) (*project.Info, error)
}

// Store persists the tracked project set across restarts. Implementations
// must tolerate concurrent calls; the tracker serializes them anyway.
type Store interface {
	LoadProjects() ([]string, error)
	SaveProjects(paths []string) error
}

// Config holds configuration for a Tracker.
type Config struct {
	// DebounceInterval is the quiet period applied to filesystem
	// events before a re-analysis triggers.
	DebounceInterval time.Duration

	// BusCapacity bounds the delivery queue to the front end.
	BusCapacity int

	// Logger for tracker activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: watch.DefaultDebounceInterval,
		BusCapacity:      DefaultBusCapacity,
		Logger:           log.New(os.Stderr, "[tracker] ", log.LstdFlags),
	}
}

// entry is the tracker's record for one project. All fields are guarded
// by the tracker mutex.
type entry struct {
	info    *project.Info
	watcher *watch.Watcher

	// inFlight marks an active analysis run; currentRun identifies it
	// so stale completions from before an unregister are discarded.
	inFlight   bool
	currentRun uint64

	// pendingRerun records that a change signal arrived mid-run; the
	// completion handler schedules exactly one trailing re-analysis.
	pendingRerun bool

	// cancel aborts the in-flight run on unregister (best effort: the
	// run may still finish, but its result is discarded).
	cancel context.CancelFunc
}

// Tracker is the project registry.
type Tracker struct {
	config   *Config
	analyzer Analyzer
	store    Store
	bus      *Bus

	mu      sync.Mutex
	entries map[string]*entry
	nextRun uint64
	closed  bool

	wg sync.WaitGroup
}

// New creates a Tracker. store may be nil to disable persistence.
func New(analyzer Analyzer, store Store, config *Config) *Tracker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = watch.DefaultDebounceInterval
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[tracker] ", log.LstdFlags)
	}
	return &Tracker{
		config:   config,
		analyzer: analyzer,
		store:    store,
		bus:      NewBus(config.BusCapacity),
		entries:  make(map[string]*entry),
	}
}

// Bus returns the delivery channel consumed by the front end.
func (t *Tracker) Bus() *Bus { return t.bus }

// LoadSaved registers every project recorded by the store, skipping
// paths that no longer exist.
func (t *Tracker) LoadSaved() {
	if t.store == nil {
		return
	}
	paths, err := t.store.LoadProjects()
	if err != nil {
		t.config.Logger.Printf("Warning: loading saved projects: %v", err)
		return
	}
	for _, p := range paths {
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.config.Logger.Printf("Skipping missing project: %s", p)
			continue
		}
		t.Register(p)
	}
}

// Register begins tracking a project root. Returns false when the path
// is already tracked or is not a directory.
//
// Registration starts a recursive watcher bound to re-analysis and
// triggers an immediate first analysis. A watch setup failure does not
// fail registration: the project stays trackable with WatchLive unset.
func (t *Tracker) Register(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		return false
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	if _, exists := t.entries[abs]; exists {
		t.mu.Unlock()
		return false
	}

	e := &entry{
		info: &project.Info{
			Name:      filepath.Base(abs),
			Root:      abs,
			Status:    project.StatusIdle,
			WatchLive: true,
		},
	}
	t.entries[abs] = e
	t.mu.Unlock()

	t.config.Logger.Printf("Registered project: %s", abs)
	t.startWatcher(abs, e)
	t.publishStatus(abs, project.StatusIdle)
	t.persist()

	t.AnalyzeAsync(abs)
	return true
}

// startWatcher creates and starts the filesystem watcher for a project.
// The ignore file is seeded first so the compiled rules cover generated
// files; without that, writing repomap.md after each run would trigger
// the next run. Rules here are a best-effort event filter either way; a
// missed filter costs a wakeup, never correctness.
func (t *Tracker) startWatcher(path string, e *entry) {
	if _, err := ignore.EnsureIgnoreFile(path); err != nil {
		t.config.Logger.Printf("Warning: %v", err)
	}
	rules, err := ignore.Compile(path)
	if err != nil {
		t.config.Logger.Printf("Warning: %v", err)
	}

	cfg := &watch.Config{
		DebounceInterval: t.config.DebounceInterval,
		Logger:           t.config.Logger,
	}
	w, err := watch.New(path, rules, func() { t.AnalyzeAsync(path) }, cfg)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		t.config.Logger.Printf("Warning: live refresh disabled for %s: %v", path, err)
		t.mu.Lock()
		e.info = withStatus(e.info, e.info.Status)
		e.info.WatchLive = false
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	e.watcher = w
	t.mu.Unlock()
}

// Unregister stops tracking a project: its watcher is stopped, pending
// debounced actions are canceled, and any in-flight analysis is
// abandoned (the run may finish but its result is discarded). After
// Unregister returns, no further messages are published for the path.
func (t *Tracker) Unregister(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	t.mu.Lock()
	e, ok := t.entries[abs]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.entries, abs)
	watcher := e.watcher
	cancel := e.cancel
	t.mu.Unlock()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			t.config.Logger.Printf("Warning: stopping watcher for %s: %v", abs, err)
		}
	}
	if cancel != nil {
		cancel()
	}

	t.config.Logger.Printf("Unregistered project: %s", abs)
	t.persist()
}

// AnalyzeAsync schedules a background analysis for a tracked project.
//
// A call while a run is already in flight marks a pending re-run and
// returns: K concurrent triggers during one run coalesce into exactly
// one trailing run, never K runs.
func (t *Tracker) AnalyzeAsync(path string) {
	t.mu.Lock()
	e, ok := t.entries[path]
	if !ok || t.closed {
		t.mu.Unlock()
		return
	}
	if e.inFlight {
		e.pendingRerun = true
		t.mu.Unlock()
		return
	}

	t.nextRun++
	runID := t.nextRun
	ctx, cancel := context.WithCancel(context.Background())
	e.inFlight = true
	e.currentRun = runID
	e.cancel = cancel
	e.info = withStatus(e.info, project.StatusScanning)
	t.mu.Unlock()

	t.publishStatus(path, project.StatusScanning)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		info, err := t.analyzer.Analyze(ctx, path, t.progressFunc(path, runID))
		t.complete(path, runID, info, err)
	}()
}

// progressFunc builds the per-run progress callback. Progress from a run
// that has been superseded or unregistered is dropped.
func (t *Tracker) progressFunc(path string, runID uint64) analyze.Progress {
	return func(stage string, percent int) {
		t.mu.Lock()
		e, ok := t.entries[path]
		if !ok || e.currentRun != runID {
			t.mu.Unlock()
			return
		}
		// The per-file phase is the only one reporting a percentage;
		// its first report moves the project to analyzing.
		transitioned := false
		if percent >= 0 && percent < 100 && e.info.Status == project.StatusScanning {
			e.info = withStatus(e.info, project.StatusAnalyzing)
			transitioned = true
		}
		t.mu.Unlock()

		if transitioned {
			t.publishStatus(path, project.StatusAnalyzing)
		}
		t.bus.Publish(Message{
			Type:    MessageTypeProgress,
			Project: path,
			Stage:   stage,
			Percent: percent,
		})
	}
}

// complete installs the result of a finished run and schedules the
// trailing re-run if changes arrived meanwhile.
func (t *Tracker) complete(path string, runID uint64, info *project.Info, err error) {
	t.mu.Lock()
	e, ok := t.entries[path]
	if !ok || e.currentRun != runID {
		// Unregistered (or superseded) while running: discard.
		t.mu.Unlock()
		return
	}

	e.inFlight = false
	e.cancel = nil
	rerun := e.pendingRerun
	e.pendingRerun = false

	var msg Message
	switch {
	case err != nil && analyze.IsCanceled(err):
		t.mu.Unlock()
		return
	case err != nil:
		// Whole-run failure: keep the previous tree, record the error.
		e.info = withStatus(e.info, project.StatusError)
		e.info.LastError = err.Error()
		msg = Message{
			Type:    MessageTypeAnalysisError,
			Project: path,
			Status:  project.StatusError,
			Error:   err.Error(),
		}
	default:
		// Preserve watch state across snapshot replacement.
		info.WatchLive = e.info.WatchLive
		e.info = info
		msg = Message{
			Type:    MessageTypeProjectUpdated,
			Project: path,
			Status:  info.Status,
			Info:    info,
		}
	}
	t.mu.Unlock()

	t.bus.Publish(msg)

	if rerun {
		t.AnalyzeAsync(path)
	}
}

// Snapshot returns the last published snapshot for a project. The read
// never blocks on an in-flight analysis: it sees either the previous
// complete snapshot or the new one.
func (t *Tracker) Snapshot(path string) (*project.Info, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[abs]
	if !ok {
		return nil, false
	}
	return e.info.Clone(), true
}

// Projects returns the tracked project roots, sorted.
func (t *Tracker) Projects() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]string, 0, len(t.entries))
	for p := range t.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close stops every watcher, abandons in-flight runs, waits for workers
// to exit, and closes the bus.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	var watchers []*watch.Watcher
	var cancels []context.CancelFunc
	for _, e := range t.entries {
		if e.watcher != nil {
			watchers = append(watchers, e.watcher)
		}
		if e.cancel != nil {
			cancels = append(cancels, e.cancel)
		}
	}
	t.mu.Unlock()

	for _, w := range watchers {
		if err := w.Stop(); err != nil {
			t.config.Logger.Printf("Warning: stopping watcher: %v", err)
		}
	}
	for _, cancel := range cancels {
		cancel()
	}

	t.wg.Wait()
	t.bus.Close()
}

// publishStatus emits a status-changed message for a still-tracked path.
func (t *Tracker) publishStatus(path string, status project.Status) {
	t.mu.Lock()
	_, ok := t.entries[path]
	t.mu.Unlock()
	if !ok {
		return
	}
	t.bus.Publish(Message{
		Type:    MessageTypeStatus,
		Project: path,
		Status:  status,
	})
}

// persist saves the tracked set through the store, if configured.
func (t *Tracker) persist() {
	if t.store == nil {
		return
	}
	if err := t.store.SaveProjects(t.Projects()); err != nil {
		t.config.Logger.Printf("Warning: saving tracked projects: %v", err)
	}
}

// withStatus clones an Info with a new status. Snapshots are immutable
// once published, so status transitions replace the pointer.
func withStatus(info *project.Info, status project.Status) *project.Info {
	out := info.Clone()
	out.Status = status
	return out
}
