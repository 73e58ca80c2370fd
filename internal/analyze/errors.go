package analyze

import "errors"

// Common errors returned by analysis operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, analyze.ErrAnalysisUnavailable) {
//	    // proceed with structural data only
//	}
var (
	// ErrAnalysisUnavailable is returned when the content-analysis
	// collaborator is unreachable or disabled. Project analysis still
	// proceeds using tree data alone.
	ErrAnalysisUnavailable = errors.New("content analysis unavailable")

	// ErrRootUnreadable is returned when the project root itself cannot
	// be read. This is the only condition that fails a whole run.
	ErrRootUnreadable = errors.New("project root unreadable")
)
