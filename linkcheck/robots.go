package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// RobotsChecker fetches robots.txt once per origin and caches it for the
// lifetime of the run.
type RobotsChecker struct {
	client *http.Client
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData // nil value means allow all
}

// NewRobotsChecker creates a RobotsChecker using client for fetches.
func NewRobotsChecker(client *http.Client) *RobotsChecker {
	return &RobotsChecker{
		client: client,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether userAgent may fetch rawURL. Fetch and parse
// failures allow the URL and are returned for logging.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return true, nil
	}

	origin := parsed.Scheme + "://" + parsed.Host
	data, err := r.rules(ctx, origin, userAgent)
	if data == nil {
		return true, err
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, userAgent), err
}

// rules returns the cached rules for origin, fetching them at most once even
// under concurrent callers.
func (r *RobotsChecker) rules(ctx context.Context, origin, userAgent string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, ok := r.cache[origin]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := r.group.Do(origin, func() (any, error) {
		r.mu.RLock()
		cached, hit := r.cache[origin]
		r.mu.RUnlock()
		if hit {
			return cached, nil
		}

		data, fetchErr := r.fetch(ctx, origin, userAgent)
		r.mu.Lock()
		r.cache[origin] = data
		r.mu.Unlock()
		return data, fetchErr
	})
	data, _ = v.(*robotstxt.RobotsData)
	return data, err
}

func (r *RobotsChecker) fetch(ctx context.Context, origin, userAgent string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create robots.txt request for %s: %w", origin, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt for %s: %w", origin, err)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxDrainBytes))
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read robots.txt body for %s: %w", origin, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close robots.txt response body for %s: %w", origin, closeErr)
	}

	// A missing file or a server error allows everything.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return nil, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for %s: %w", origin, err)
	}
	return data, nil
}
