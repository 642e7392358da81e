package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lukemcguire/zombielinks/result"
)

// RetryPolicy configures retry behavior for transient failures.
type RetryPolicy struct {
	MaxRetries int           // Retries after the first probe (0 = single probe)
	BaseDelay  time.Duration // Initial backoff delay
	MaxDelay   time.Duration // Maximum backoff cap
}

// DefaultRetryPolicy returns a policy with no retries, so each URL gets
// exactly one HEAD/GET probe sequence. The delays apply once retries are
// enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 0,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// retryablePatterns match transient failures the classifier does not catch.
var retryablePatterns = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"dns",
	"temporary failure",
}

// checkWithRetry runs probe with exponential backoff. It retries on transient
// failures (network errors, 5xx, 429) but not on other responses.
func (c *Checker) checkWithRetry(ctx context.Context, rawURL string) result.Outcome {
	policy := c.cfg.RetryPolicy
	backoff := policy.BaseDelay
	var outcome result.Outcome

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return outcome
			case <-time.After(backoff):
				backoff = min(backoff*2, policy.MaxDelay)
			}
		}

		outcome = c.probe(ctx, rawURL)
		outcome.Attempts = attempt + 1

		if !shouldRetry(outcome) {
			return outcome
		}
	}

	if !outcome.Reachable && outcome.Attempts > 1 {
		outcome.Detail = fmt.Sprintf("%s (after %d attempts)", outcome.Detail, outcome.Attempts)
	}
	return outcome
}

// shouldRetry reports whether an outcome looks transient.
func shouldRetry(o result.Outcome) bool {
	if o.Skipped {
		return false
	}
	if o.Reachable {
		return o.StatusCode == http.StatusTooManyRequests || o.StatusCode >= 500
	}

	switch o.ErrorCategory {
	case result.CategoryTimeout, result.CategoryDNSFailure,
		result.CategoryConnectionRefused, result.CategoryConnectionReset:
		return true
	case result.CategoryTLS, result.CategoryTooManyRedirects:
		return false
	}
	return isRetryableMessage(o.Detail)
}

func isRetryableMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
