package linkcheck

import "github.com/lukemcguire/zombielinks/result"

// CheckEvent reports progress for a single checked URL.
type CheckEvent struct {
	URL           string
	StatusCode    int
	Error         string
	ErrorCategory result.ErrorCategory
	Skipped       bool
	Checked       int
	Total         int
	Broken        int
}
