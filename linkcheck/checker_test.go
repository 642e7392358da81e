package linkcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lukemcguire/zombielinks/result"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Concurrency != 16 {
		t.Errorf("Concurrency = %d, want 16", cfg.Concurrency)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.MaxRedirects != 10 {
		t.Errorf("MaxRedirects = %d, want 10", cfg.MaxRedirects)
	}
	if cfg.RetryPolicy.MaxRetries != 0 {
		t.Errorf("RetryPolicy.MaxRetries = %d, want 0", cfg.RetryPolicy.MaxRetries)
	}
}

func TestCheck_HeadOK(t *testing.T) {
	var heads, gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			atomic.AddInt32(&heads, 1)
		} else {
			atomic.AddInt32(&gets, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	out := NewChecker(testConfig(), nil).Check(context.Background(), server.URL)

	if !out.Reachable || out.StatusCode != http.StatusOK {
		t.Fatalf("expected Reachable(200), got %+v", out)
	}
	if out.Method != http.MethodHead {
		t.Errorf("Method = %q, want HEAD", out.Method)
	}
	if heads != 1 || gets != 0 {
		t.Errorf("expected 1 HEAD and 0 GET, got %d HEAD and %d GET", heads, gets)
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
}

func TestCheck_HeadErrorStatusIsAnAnswer(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"method not allowed", http.StatusMethodNotAllowed},
		{"not implemented", http.StatusNotImplemented},
		{"not found", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gets int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					atomic.AddInt32(&gets, 1)
					w.WriteHeader(http.StatusOK)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			out := NewChecker(testConfig(), nil).Check(context.Background(), server.URL)

			if !out.Reachable || out.StatusCode != tt.status {
				t.Errorf("expected Reachable(%d), got %+v", tt.status, out)
			}
			if gets != 0 {
				t.Errorf("expected no GET fallback, got %d", gets)
			}
		})
	}
}

func TestCheck_HeadTransportErrorFallsBackToGet(t *testing.T) {
	var heads, gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			atomic.AddInt32(&heads, 1)
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer does not support hijacking")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		atomic.AddInt32(&gets, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	out := NewChecker(testConfig(), nil).Check(context.Background(), server.URL)

	if !out.Reachable || out.StatusCode != http.StatusOK {
		t.Fatalf("expected Reachable(200), got %+v", out)
	}
	if out.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", out.Method)
	}
	if heads == 0 {
		t.Error("expected HEAD to be attempted")
	}
	if gets != 1 {
		t.Errorf("expected exactly 1 GET, got %d", gets)
	}
}

func TestCheck_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	out := NewChecker(testConfig(), nil).Check(context.Background(), target)

	if out.Reachable {
		t.Fatalf("expected unreachable, got %+v", out)
	}
	if out.Reason != string(result.CategoryConnectionRefused) {
		t.Errorf("Reason = %q, want %q", out.Reason, result.CategoryConnectionRefused)
	}
	if out.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET after HEAD failure", out.Method)
	}
	if out.Detail == "" {
		t.Error("expected raw error detail")
	}
}

func TestCheck_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RequestTimeout = 50 * time.Millisecond

	start := time.Now()
	out := NewChecker(cfg, nil).Check(context.Background(), server.URL)

	if out.Reachable {
		t.Fatalf("expected unreachable, got %+v", out)
	}
	if out.Reason != string(result.CategoryTimeout) {
		t.Errorf("Reason = %q, want %q", out.Reason, result.CategoryTimeout)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("check took %v, expected per-attempt timeout to bound it", elapsed)
	}
}

func TestCheck_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig()
	cfg.MaxRedirects = 3
	checker := NewChecker(cfg, nil)

	t.Run("followed", func(t *testing.T) {
		out := checker.Check(context.Background(), server.URL+"/start")
		if !out.Reachable || out.StatusCode != http.StatusOK {
			t.Errorf("expected Reachable(200) after redirect, got %+v", out)
		}
	})

	t.Run("loop exceeds limit", func(t *testing.T) {
		out := checker.Check(context.Background(), server.URL+"/loop")
		if out.Reachable {
			t.Fatalf("expected unreachable, got %+v", out)
		}
		if out.Reason != string(result.CategoryTooManyRedirects) {
			t.Errorf("Reason = %q, want %q", out.Reason, result.CategoryTooManyRedirects)
		}
		if !strings.Contains(out.Detail, ErrTooManyRedirects.Error()) {
			t.Errorf("Detail = %q, want it to mention %q", out.Detail, ErrTooManyRedirects)
		}
	})
}

func TestCheck_SendsUserAgent(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.UserAgent = "linkbot/2.0"
	NewChecker(cfg, nil).Check(context.Background(), server.URL)

	if ua, _ := got.Load().(string); ua != "linkbot/2.0" {
		t.Errorf("User-Agent = %q, want %q", ua, "linkbot/2.0")
	}
}

func TestCheck_GetDrainsLargeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			hj, _ := w.(http.Hijacker)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
		chunk := []byte(strings.Repeat("x", 64*1024))
		for range 64 {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	out := NewChecker(testConfig(), nil).Check(context.Background(), server.URL)

	if !out.Reachable || out.StatusCode != http.StatusOK {
		t.Errorf("expected Reachable(200), got %+v", out)
	}
}

type codedError struct{ code int }

func (e codedError) Error() string   { return "" }
func (e codedError) StatusCode() int { return e.code }

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category result.ErrorCategory
		want     string
	}{
		{"category wins", errors.New("dial tcp: timeout"), result.CategoryTimeout, "timeout"},
		{"status carried by error", codedError{code: 502}, result.CategoryUnknown, "502"},
		{"raw message", errors.New("unexpected EOF"), result.CategoryUnknown, "unexpected EOF"},
		{"generic sentinel", codedError{}, result.CategoryUnknown, "request_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReason(tt.err, tt.category); got != tt.want {
				t.Errorf("failureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeStateMachine_BothFail(t *testing.T) {
	checker := NewChecker(testConfig(), nil)

	out := checker.probe(context.Background(), "http://[::1]:namedport")

	if out.Reachable {
		t.Fatalf("expected unreachable for malformed URL, got %+v", out)
	}
	if out.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", out.Method)
	}
	if out.Reason == "" {
		t.Error("expected a failure reason")
	}
}
