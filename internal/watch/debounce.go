// Package watch provides filesystem change notification for project roots.
//
// A Watcher subscribes to recursive fsnotify events beneath a project root
// and forwards them through a Debouncer, so a burst of edits (a build, a
// checkout) yields one change callback instead of one per touched file.
// Event forwarding never blocks on the callback: all business logic runs
// on the debounce timer goroutine, keeping the watcher loop free.
package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid repeated triggers keyed by an identifier into
// a single delayed action. Safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*pendingAction
}

// pendingAction tracks one scheduled timer. The pointer doubles as an
// identity token: a timer only fires its action if it is still the
// registered pending action for its key when the timer goes off.
type pendingAction struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer creates an empty Debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*pendingAction)}
}

// Schedule arranges for fn to run once after delay, unless another
// Schedule call for the same key arrives first. A repeated call cancels
// the previous pending action and restarts the timer, so fn fires exactly
// once per quiet burst and always carries the effect of the last call.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	p := &pendingAction{fn: fn}
	p.timer = time.AfterFunc(delay, func() {
		d.fire(key, p)
	})
	d.pending[key] = p
}

// fire runs a pending action if it is still current for its key.
// A Schedule or Cancel that raced with the timer wins: the stale timer
// finds itself replaced and does nothing.
func (d *Debouncer) fire(key string, p *pendingAction) {
	d.mu.Lock()
	current, ok := d.pending[key]
	if !ok || current != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	p.fn()
}

// Cancel drops any pending action for key. After Cancel returns, the
// action is guaranteed not to fire.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// CancelAll drops every pending action. Used on shutdown.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// PendingCount returns the number of keys with a scheduled action.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
