package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func robotsServer(t *testing.T, status int, body string, fetches *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if fetches != nil {
				atomic.AddInt32(fetches, 1)
			}
			w.WriteHeader(status)
			if body != "" {
				if _, err := w.Write([]byte(body)); err != nil {
					t.Errorf("write robots.txt: %v", err)
				}
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRobotsChecker_Allowed(t *testing.T) {
	testCases := []struct {
		name       string
		robotsTxt  string
		statusCode int
		path       string
		userAgent  string
		want       bool
	}{
		{
			name:       "disallow specific path",
			robotsTxt:  "User-agent: *\nDisallow: /private/",
			statusCode: http.StatusOK,
			path:       "/private/secret",
			userAgent:  "testbot",
			want:       false,
		},
		{
			name:       "allow public path",
			robotsTxt:  "User-agent: *\nDisallow: /private/",
			statusCode: http.StatusOK,
			path:       "/public/page",
			userAgent:  "testbot",
			want:       true,
		},
		{
			name:       "404 allows all",
			statusCode: http.StatusNotFound,
			path:       "/any/path",
			userAgent:  "testbot",
			want:       true,
		},
		{
			name:       "500 allows all",
			statusCode: http.StatusInternalServerError,
			path:       "/any/path",
			userAgent:  "testbot",
			want:       true,
		},
		{
			name:       "empty robots.txt allows all",
			statusCode: http.StatusOK,
			path:       "/any/path",
			userAgent:  "testbot",
			want:       true,
		},
		{
			name:       "specific user agent disallowed",
			robotsTxt:  "User-agent: EvilBot\nDisallow: /",
			statusCode: http.StatusOK,
			path:       "/page",
			userAgent:  "EvilBot",
			want:       false,
		},
		{
			name:       "other user agent allowed",
			robotsTxt:  "User-agent: EvilBot\nDisallow: /",
			statusCode: http.StatusOK,
			path:       "/page",
			userAgent:  "GoodBot",
			want:       true,
		},
		{
			name:       "root url without path",
			robotsTxt:  "User-agent: *\nDisallow: /",
			statusCode: http.StatusOK,
			path:       "",
			userAgent:  "testbot",
			want:       false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := robotsServer(t, testCase.statusCode, testCase.robotsTxt, nil)
			checker := NewRobotsChecker(&http.Client{Timeout: 5 * time.Second})

			got, err := checker.Allowed(context.Background(), server.URL+testCase.path, testCase.userAgent)
			if err != nil {
				t.Errorf("Allowed() error = %v, want nil", err)
			}
			if got != testCase.want {
				t.Errorf("Allowed() = %v, want %v", got, testCase.want)
			}
		})
	}
}

func TestRobotsChecker_FetchesOncePerOrigin(t *testing.T) {
	var fetches int32
	server := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /blocked/", &fetches)
	checker := NewRobotsChecker(&http.Client{Timeout: 5 * time.Second})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := "/open/page"
			if i%2 == 0 {
				path = "/blocked/page"
			}
			allowed, err := checker.Allowed(context.Background(), server.URL+path, "testbot")
			if err != nil {
				t.Errorf("Allowed() error = %v", err)
			}
			if allowed == (i%2 == 0) {
				t.Errorf("Allowed(%s) = %v", path, allowed)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", got)
	}
}

func TestRobotsChecker_TimeoutAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	checker := NewRobotsChecker(&http.Client{Timeout: 20 * time.Millisecond})

	allowed, err := checker.Allowed(context.Background(), server.URL+"/any/path", "testbot")
	if !allowed {
		t.Error("Timeout should allow all")
	}
	if err == nil {
		t.Error("Timeout should return an error for visibility")
	}
}

func TestChecker_RespectRobotsSkipsDisallowed(t *testing.T) {
	var pageHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/"))
			return
		}
		atomic.AddInt32(&pageHits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	checker := NewChecker(cfg, nil)

	skipped := checker.Check(context.Background(), server.URL+"/private/doc")
	if !skipped.Skipped {
		t.Errorf("expected skipped outcome, got %+v", skipped)
	}
	if pageHits != 0 {
		t.Errorf("disallowed URL should not be requested, got %d hits", pageHits)
	}

	allowed := checker.Check(context.Background(), server.URL+"/public/doc")
	if allowed.Skipped || !allowed.Reachable {
		t.Errorf("expected reachable outcome, got %+v", allowed)
	}
}
