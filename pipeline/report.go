package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/lukemcguire/zombielinks/result"
)

// ReportOptions controls how a result is surfaced.
type ReportOptions struct {
	FailOnBroken bool   // Report entries as errors instead of warnings
	Root         string // Prefix for file paths in messages
	PerEntry     bool   // Emit one message per referencing file and URL
}

// Report sends res to sink: run statistics as debug messages, then one
// message per broken (file, URL) pair, then the verdict.
func Report(sink Sink, res *result.Result, opts ReportOptions) {
	sink.Debug(fmt.Sprintf("Files matched: %d", res.Stats.FilesScanned))
	sink.Debug(fmt.Sprintf("Links to check: %d", res.Stats.TotalChecked))

	if opts.PerEntry {
		for _, link := range res.BrokenLinks {
			for _, file := range link.Files {
				msg := fmt.Sprintf("%s: %s -> %s", displayPath(opts.Root, file), link.URL, link.Describe())
				if opts.FailOnBroken {
					sink.Error(msg)
				} else {
					sink.Warning(msg)
				}
			}
		}
	}
	if len(res.BrokenLinks) > 0 {
		sink.Debug(fmt.Sprintf("Broken count: %d", len(res.BrokenLinks)))
	}

	sink.SetResult(res.Verdict, res.Summary)
}

// Fail reports a run that could not complete.
func Fail(sink Sink, err error) {
	sink.SetResult(result.VerdictFailed, "Task error: "+err.Error())
}

func displayPath(root, file string) string {
	if root == "" || root == "." {
		return file
	}
	return filepath.Join(root, filepath.FromSlash(file))
}
