package watch

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/repomap/repomap/internal/ignore"
)

// DefaultDebounceInterval is how long a project must stay quiet after a
// filesystem event before the change callback fires.
const DefaultDebounceInterval = 1 * time.Second

// Config holds configuration for a Watcher.
type Config struct {
	// DebounceInterval is the quiet period applied to change events.
	DebounceInterval time.Duration

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: DefaultDebounceInterval,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher monitors one project root for filesystem changes.
//
// fsnotify watches are not recursive, so the watcher registers every
// non-ignored directory at Start and adds newly created directories as
// they appear. Events under ignored paths are filtered before debouncing;
// a missed filter only costs an extra wakeup, never correctness.
type Watcher struct {
	root     string
	rules    *ignore.RuleSet
	onChange func()
	config   *Config

	fsw      *fsnotify.Watcher
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher for the given project root. The change callback
// runs on a timer goroutine after events go quiet; it must not block for
// long. A nil rules set disables event filtering.
func New(root string, rules *ignore.RuleSet, onChange func(), config *Config) (*Watcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatchSetup, err)
	}

	return &Watcher{
		root:     root,
		rules:    rules,
		onChange: onChange,
		config:   config,
		fsw:      fsw,
		debounce: NewDebouncer(),
		done:     make(chan struct{}),
	}, nil
}

// Start registers watches for the root and every non-ignored directory
// beneath it, then begins forwarding debounced change signals.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running for %s", w.root)
	}

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("%w: %v", ErrWatchSetup, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop unsubscribes from filesystem notifications and cancels any pending
// debounced change. It blocks until the event loop has exited. Safe to
// call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	err := w.fsw.Close()
	w.wg.Wait()
	w.debounce.Cancel(w.root)

	if err != nil {
		return fmt.Errorf("closing fsnotify watcher: %w", err)
	}
	return nil
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// addRecursive registers fsnotify watches for dir and all non-ignored
// subdirectories. Unreadable subtrees are skipped, not fatal: the scan
// records them as unreadable anyway.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path, true) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			// Watch registration for one subdirectory can fail on
			// inotify limits; changes there are picked up on the
			// next full rescan.
			w.config.Logger.Printf("Warning: cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// processEvents is the event loop. It filters, tracks new directories,
// and schedules the debounced change callback.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error for %s: %v", w.root, err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod-only events carry no content change.
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.ignored(event.Name, isDir) {
		return
	}

	// New directories must be added to the watch set; fsnotify only
	// reports events for explicitly registered paths.
	if isDir && event.Has(fsnotify.Create) {
		if err := w.addRecursive(event.Name); err != nil {
			w.config.Logger.Printf("Warning: cannot watch new directory %s: %v", event.Name, err)
		}
	}

	w.debounce.Schedule(w.root, w.config.DebounceInterval, w.onChange)
}

// ignored reports whether a path is excluded by the project's ignore
// rules. Paths outside the root are never ignored.
func (w *Watcher) ignored(path string, isDir bool) bool {
	if w.rules == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return w.rules.Match(filepath.ToSlash(rel), isDir)
}
