package ignore

import "errors"

// ErrConfig is returned when an ignore file exists but cannot be read.
//
// Callers should treat this as a degraded condition, not a failure: the
// accompanying RuleSet is empty and usable, and the analysis proceeds
// without ignore rules.
//
//	rules, err := ignore.Compile(root)
//	if errors.Is(err, ignore.ErrConfig) {
//	    logger.Printf("Warning: %v", err)
//	}
var ErrConfig = errors.New("ignore file unreadable")
