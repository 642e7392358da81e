package result

import (
	"fmt"
	"slices"
)

// References looks up the files that reference a URL.
type References interface {
	Files(url string) []string
	Len() int
}

// Aggregate joins broken outcomes with their referencing files and decides
// the verdict. A run with broken links fails only when failOnBroken is set;
// otherwise it succeeds and the broken count is reported as a warning.
func Aggregate(refs References, broken map[string]Outcome, failOnBroken bool) *Result {
	links := make([]BrokenLink, 0, len(broken))
	for url, outcome := range broken {
		link := BrokenLink{
			URL:   url,
			Files: refs.Files(url),
		}
		if outcome.Reachable {
			link.StatusCode = outcome.StatusCode
			link.ErrorCategory = ClassifyError(nil, outcome.StatusCode, false)
		} else {
			link.Error = outcome.Describe()
			link.Detail = outcome.Detail
			link.ErrorCategory = outcome.ErrorCategory
		}
		links = append(links, link)
	}
	slices.SortFunc(links, func(a, b BrokenLink) int {
		switch {
		case a.URL < b.URL:
			return -1
		case a.URL > b.URL:
			return 1
		}
		return 0
	})

	res := &Result{
		BrokenLinks: links,
		Stats: RunStats{
			TotalChecked: refs.Len(),
			BrokenCount:  len(links),
		},
		Verdict: VerdictSucceeded,
	}

	if len(links) > 0 && failOnBroken {
		res.Verdict = VerdictFailed
		res.Summary = fmt.Sprintf("Found %d broken link(s).", len(links))
		return res
	}
	res.Summary = fmt.Sprintf("Checked %d link(s). Broken: %d.", res.Stats.TotalChecked, len(links))
	return res
}
