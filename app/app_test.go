package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukemcguire/zombielinks/linkcheck"
	"github.com/lukemcguire/zombielinks/result"
	"github.com/lukemcguire/zombielinks/source"
)

// stubCheck answers from a fixed table and counts invocations.
type stubCheck struct {
	mu       sync.Mutex
	statuses map[string]int
	calls    map[string]int
}

func newStubCheck(statuses map[string]int) *stubCheck {
	return &stubCheck{statuses: statuses, calls: make(map[string]int)}
}

func (s *stubCheck) check(_ context.Context, url string) result.Outcome {
	s.mu.Lock()
	s.calls[url]++
	s.mu.Unlock()

	status, ok := s.statuses[url]
	if !ok {
		return result.Outcome{Reason: "dns_failure", ErrorCategory: result.CategoryDNSFailure}
	}
	return result.Outcome{Reachable: true, StatusCode: status}
}

func TestRun_TwoFileScenario(t *testing.T) {
	t.Parallel()

	stub := newStubCheck(map[string]int{"https://ok.example/x": 200})
	opts := Options{
		FS: fstest.MapFS{
			"a.html": {Data: []byte(`<a href="https://ok.example/x">ok</a>`)},
			"b.md":   {Data: []byte("see https://ok.example/x and https://broken.example/y.")},
		},
		IgnorePatterns: []string{"*.example/y"},
		AllowedStatus:  "200-299",
		Check:          stub.check,
	}

	res, err := Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, res.BrokenLinks)
	assert.Equal(t, result.VerdictSucceeded, res.Verdict)
	assert.Equal(t, 1, res.Stats.TotalChecked)
	assert.Equal(t, 2, res.Stats.FilesScanned)
	assert.Equal(t, "Checked 1 link(s). Broken: 0.", res.Summary)
	assert.Equal(t, map[string]int{"https://ok.example/x": 1}, stub.calls)
}

func TestRun_EmptyAllowedStatusRejectsRedirect(t *testing.T) {
	t.Parallel()

	stub := newStubCheck(map[string]int{"https://moved.example/": 301})
	opts := Options{
		FS:            fstest.MapFS{"index.html": {Data: []byte(`<a href="https://moved.example/">moved</a>`)}},
		AllowedStatus: "",
		Check:         stub.check,
	}

	res, err := Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	require.Len(t, res.BrokenLinks, 1)
	assert.Equal(t, "https://moved.example/", res.BrokenLinks[0].URL)
	assert.Equal(t, 301, res.BrokenLinks[0].StatusCode)
	assert.Equal(t, []string{"index.html"}, res.BrokenLinks[0].Files)
	assert.Equal(t, result.VerdictSucceeded, res.Verdict)
	assert.Equal(t, "Checked 1 link(s). Broken: 1.", res.Summary)
}

func TestRun_FailOnBroken(t *testing.T) {
	t.Parallel()

	stub := newStubCheck(map[string]int{"https://ok.example/": 200, "https://gone.example/": 404})
	opts := Options{
		FS: fstest.MapFS{
			"a.md": {Data: []byte("https://ok.example/ https://gone.example/ https://nowhere.example/")},
			"b.md": {Data: []byte("https://gone.example/")},
		},
		AllowedStatus: "200-299",
		FailOnBroken:  true,
		Check:         stub.check,
	}

	res, err := Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, result.VerdictFailed, res.Verdict)
	assert.Equal(t, "Found 2 broken link(s).", res.Summary)
	require.Len(t, res.BrokenLinks, 2)
	assert.Equal(t, "https://gone.example/", res.BrokenLinks[0].URL)
	assert.Equal(t, []string{"a.md", "b.md"}, res.BrokenLinks[0].Files)
	assert.Equal(t, "https://nowhere.example/", res.BrokenLinks[1].URL)
	assert.Equal(t, "dns_failure", res.BrokenLinks[1].Error)
	assert.Equal(t, result.CategoryDNSFailure, res.BrokenLinks[1].ErrorCategory)
}

func TestRun_DedupAcrossFilesChecksOnce(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{}
	statuses := map[string]int{}
	for i := range 30 {
		url := fmt.Sprintf("https://site.example/%d", i%10)
		statuses[url] = 200
		fsys[fmt.Sprintf("docs/page%02d.md", i)] = &fstest.MapFile{Data: []byte("link: " + url + ".")}
	}
	stub := newStubCheck(statuses)

	opts := Options{FS: fsys, Check: stub.check, AllowedStatus: "200"}
	opts.Checker.Concurrency = 8

	res, err := Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Stats.TotalChecked)
	assert.Equal(t, 30, res.Stats.FilesScanned)
	assert.Len(t, stub.calls, 10)
	for url, n := range stub.calls {
		assert.Equal(t, 1, n, "url %s checked more than once", url)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Options{Root: t.TempDir() + "/missing"}, nil, nil)
	require.Error(t, err)
	assert.True(t, source.IsNotExist(err))
}

func TestRun_InvalidIncludeGlob(t *testing.T) {
	t.Parallel()

	opts := Options{
		FS:      fstest.MapFS{"a.md": {Data: []byte("https://x.example/")}},
		Include: []string{"[unterminated"},
	}

	_, err := Run(context.Background(), opts, nil, nil)
	require.Error(t, err)
}

func TestRun_RealHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/missing", http.NotFound)
	server := httptest.NewServer(mux)
	defer server.Close()

	fsys := fstest.MapFS{
		"index.html": {Data: []byte(fmt.Sprintf(`<a href="%s/ok">ok</a><img src="%s/missing">`, server.URL, server.URL))},
	}
	progressCh := make(chan linkcheck.CheckEvent, 10)

	opts := Options{FS: fsys, AllowedStatus: "200-299", Checker: linkcheck.DefaultConfig()}
	res, err := Run(context.Background(), opts, nil, progressCh)
	require.NoError(t, err)

	require.Len(t, res.BrokenLinks, 1)
	assert.Equal(t, server.URL+"/missing", res.BrokenLinks[0].URL)
	assert.Equal(t, 404, res.BrokenLinks[0].StatusCode)
	assert.Equal(t, result.Category4xx, res.BrokenLinks[0].ErrorCategory)
	assert.Len(t, progressCh, 2)
}
