package result

import (
	"strconv"
	"time"
)

// Outcome is the result of probing a single unique URL.
type Outcome struct {
	Reachable     bool          // A response was received
	StatusCode    int           // HTTP status of the response (0 if unreachable)
	Method        string        // Method that produced the response (HEAD or GET)
	Reason        string        // Lowest-level diagnostic when unreachable
	Detail        string        // Raw error message when unreachable
	ErrorCategory ErrorCategory // Classification of the failure
	Skipped       bool          // Not probed, e.g. disallowed by robots.txt
	Attempts      int           // Probe sequences run, including retries
	Elapsed       time.Duration // Wall time spent on the URL
}

// Describe returns the status code for a reachable outcome, otherwise the
// failure reason.
func (o Outcome) Describe() string {
	if o.Reachable {
		return strconv.Itoa(o.StatusCode)
	}
	if o.Reason != "" {
		return o.Reason
	}
	return "unknown"
}

// BrokenLink is a URL whose outcome is not acceptable, joined with every file
// that references it.
type BrokenLink struct {
	URL           string        `json:"url" yaml:"url"`
	StatusCode    int           `json:"status_code" yaml:"status_code"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`
	Detail        string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	ErrorCategory ErrorCategory `json:"error_type" yaml:"error_type"`
	Files         []string      `json:"files" yaml:"files"`
}

// Describe returns the status code if one was received, otherwise the error.
func (b BrokenLink) Describe() string {
	if b.Error != "" {
		return b.Error
	}
	return strconv.Itoa(b.StatusCode)
}

// Verdict is the overall result of a run.
type Verdict string

// Verdict values, spelled the way Azure Pipelines expects them.
const (
	// VerdictSucceeded means no broken links, or broken links reported as warnings.
	VerdictSucceeded Verdict = "Succeeded"
	// VerdictFailed means broken links were found with fail-on-broken set, or
	// the run could not complete.
	VerdictFailed Verdict = "Failed"
)

// RunStats contains aggregate statistics for a run.
type RunStats struct {
	FilesScanned int           // Files read and scanned for links
	TotalChecked int           // Unique URLs checked
	BrokenCount  int           // Unique URLs reported broken
	SkippedCount int           // Unique URLs not probed
	Duration     time.Duration // Total time taken for the run
}

// Result is the complete output of a run.
type Result struct {
	BrokenLinks []BrokenLink // Broken URLs sorted by URL
	Stats       RunStats     // Aggregate statistics
	Verdict     Verdict      // Succeeded or Failed
	Summary     string       // Human-readable one-line summary
}

// Succeeded reports whether the run verdict is a success.
func (r *Result) Succeeded() bool {
	return r != nil && r.Verdict == VerdictSucceeded
}
