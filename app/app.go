// Package app wires file discovery, link extraction, checking and
// aggregation into a single run.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/zombielinks/extract"
	"github.com/lukemcguire/zombielinks/index"
	"github.com/lukemcguire/zombielinks/linkcheck"
	"github.com/lukemcguire/zombielinks/policy"
	"github.com/lukemcguire/zombielinks/result"
	"github.com/lukemcguire/zombielinks/source"
	"github.com/lukemcguire/zombielinks/urlutil"
)

// Options configures a run.
type Options struct {
	FS               fs.FS    // File tree to scan; nil means os.DirFS(Root)
	Root             string   // Directory to scan when FS is nil (default ".")
	Include          []string // Include globs; empty uses source.DefaultInclude
	Exclude          []string // Exclude globs
	IgnorePatterns   []string // Wildcard patterns for URLs to skip
	MarkupExtensions []string // Extensions parsed as markup
	AllowedStatus    string   // Acceptable status spec, e.g. "200-299,404"
	FailOnBroken     bool     // Broken links fail the run

	Checker linkcheck.Config    // HTTP checker and scheduler settings
	Check   linkcheck.CheckFunc // Replaces the HTTP checker when set
}

// Run scans the file tree, checks every unique URL once and aggregates the
// broken ones. Per-file and per-URL failures are folded into the result;
// only failures to enumerate files or compile patterns are returned.
// progressCh is optional and is not closed by Run.
func Run(ctx context.Context, opts Options, logger *zap.Logger, progressCh chan<- linkcheck.CheckEvent) (*result.Result, error) {
	start := time.Now()
	if logger == nil {
		logger = zap.NewNop()
	}

	fsys := opts.FS
	if fsys == nil {
		root := opts.Root
		if root == "" {
			root = "."
		}
		fsys = os.DirFS(root)
	}

	finder, err := source.NewFinder(opts.Include, opts.Exclude, logger)
	if err != nil {
		return nil, err
	}
	paths, err := finder.Find(fsys)
	if err != nil {
		return nil, err
	}

	ignore, err := urlutil.CompileIgnore(opts.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("compile ignore patterns: %w", err)
	}

	builder := index.NewBuilder(extract.New(opts.MarkupExtensions, logger), ignore, logger)
	refs, scanned := builder.BuildFS(fsys, paths)
	logger.Debug("links to check", zap.Int("count", refs.Len()))

	check := opts.Check
	if check == nil {
		check = linkcheck.NewChecker(opts.Checker, logger).Check
	}
	statusPolicy := policy.Parse(opts.AllowedStatus)
	logger.Debug("status policy", zap.Stringer("allowed", statusPolicy))

	scheduler := linkcheck.NewScheduler(opts.Checker.Concurrency, check, statusPolicy.Accepts, progressCh)
	summary, err := scheduler.Run(ctx, refs.URLs())
	if err != nil {
		return nil, err
	}

	res := result.Aggregate(refs, summary.Broken, opts.FailOnBroken)
	res.Stats.FilesScanned = scanned
	res.Stats.SkippedCount = summary.Skipped
	res.Stats.Duration = time.Since(start)

	logger.Info("run complete",
		zap.Int("files", res.Stats.FilesScanned),
		zap.Int("checked", res.Stats.TotalChecked),
		zap.Int("broken", res.Stats.BrokenCount),
		zap.Int("skipped", res.Stats.SkippedCount),
		zap.Duration("duration", res.Stats.Duration),
		zap.String("verdict", string(res.Verdict)),
	)
	return res, nil
}
