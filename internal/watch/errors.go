package watch

import "errors"

// ErrWatchSetup is returned when the OS could not establish a filesystem
// subscription for a project root.
//
// The project remains trackable without live refresh; callers surface the
// condition as a status flag and keep manual re-scans available:
//
//	if errors.Is(err, watch.ErrWatchSetup) {
//	    info.WatchLive = false
//	}
var ErrWatchSetup = errors.New("filesystem watch setup failed")
