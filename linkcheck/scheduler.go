package linkcheck

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/zombielinks/policy"
	"github.com/lukemcguire/zombielinks/result"
)

// CheckFunc probes one URL.
type CheckFunc func(ctx context.Context, url string) result.Outcome

// AcceptFunc decides whether an outcome is acceptable.
type AcceptFunc func(result.Outcome) bool

// RunSummary holds the outcomes retained by a scheduler run.
type RunSummary struct {
	Broken  map[string]result.Outcome // Outcomes that were not accepted
	Checked int                       // URLs checked, always len(urls) on success
	Skipped int                       // URLs not probed
}

// Scheduler runs a CheckFunc over a list of URLs with a fixed pool of
// workers pulling from a shared index.
type Scheduler struct {
	workers    int
	check      CheckFunc
	accept     AcceptFunc
	progressCh chan<- CheckEvent
}

// NewScheduler creates a Scheduler. workers is clamped to at least 1. A nil
// accept uses the default status policy. progressCh is optional.
func NewScheduler(workers int, check CheckFunc, accept AcceptFunc, progressCh chan<- CheckEvent) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if accept == nil {
		accept = policy.Parse(policy.DefaultSpec).Accepts
	}
	return &Scheduler{
		workers:    workers,
		check:      check,
		accept:     accept,
		progressCh: progressCh,
	}
}

// Workers returns the effective worker count.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Run checks every URL exactly once and returns the outcomes that were not
// accepted. Each index is claimed by exactly one worker, which owns the
// matching outcome slot, so no lock guards the outcomes.
func (s *Scheduler) Run(ctx context.Context, urls []string) (RunSummary, error) {
	outcomes := make([]result.Outcome, len(urls))
	accepted := make([]bool, len(urls))

	var next atomic.Int64
	var checked, broken atomic.Int64

	errGroup, groupCtx := errgroup.WithContext(ctx)
	for range min(s.workers, max(len(urls), 1)) {
		errGroup.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= len(urls) {
					return nil
				}
				if err := groupCtx.Err(); err != nil {
					return err
				}

				outcome := s.check(groupCtx, urls[i])
				ok := s.accept(outcome)
				outcomes[i] = outcome
				accepted[i] = ok

				brokenSoFar := broken.Load()
				if !ok {
					brokenSoFar = broken.Add(1)
				}
				if err := s.emit(groupCtx, urls[i], outcome, int(checked.Add(1)), len(urls), int(brokenSoFar)); err != nil {
					return err
				}
			}
		})
	}

	if err := errGroup.Wait(); err != nil {
		return RunSummary{}, fmt.Errorf("check urls: %w", err)
	}

	summary := RunSummary{
		Broken:  make(map[string]result.Outcome),
		Checked: len(urls),
	}
	for i, url := range urls {
		if outcomes[i].Skipped {
			summary.Skipped++
		}
		if !accepted[i] {
			summary.Broken[url] = outcomes[i]
		}
	}
	return summary, nil
}

func (s *Scheduler) emit(ctx context.Context, url string, o result.Outcome, checked, total, broken int) error {
	if s.progressCh == nil {
		return nil
	}
	evt := CheckEvent{
		URL:        url,
		StatusCode: o.StatusCode,
		Skipped:    o.Skipped,
		Checked:    checked,
		Total:      total,
		Broken:     broken,
	}
	if !o.Reachable && !o.Skipped {
		evt.Error = o.Describe()
		evt.ErrorCategory = o.ErrorCategory
	}
	select {
	case s.progressCh <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
