package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lukemcguire/zombielinks/result"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		want    []Range
		wantStr string
	}{
		{
			name:    "default spec",
			spec:    DefaultSpec,
			want:    []Range{{200, 299}, {301, 301}, {302, 302}, {307, 307}, {308, 308}},
			wantStr: "200-299,301,302,307,308",
		},
		{
			name:    "empty falls back to 2xx",
			spec:    "",
			want:    []Range{{200, 299}},
			wantStr: "200-299",
		},
		{
			name:    "garbage tokens skipped",
			spec:    "abc, 404 ,20,1000,299-200,500-599",
			want:    []Range{{404, 404}, {500, 599}},
			wantStr: "404,500-599",
		},
		{
			name:    "only garbage falls back to 2xx",
			spec:    "ok,, -",
			want:    []Range{{200, 299}},
			wantStr: "200-299",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Parse(tt.spec)
			assert.Equal(t, tt.want, p.Ranges())
			assert.Equal(t, tt.wantStr, p.String())
		})
	}
}

func TestAllows(t *testing.T) {
	t.Parallel()

	p := Parse("200-299,404")

	assert.True(t, p.Allows(204))
	assert.True(t, p.Allows(404))
	assert.True(t, p.Allows(200))
	assert.True(t, p.Allows(299))
	assert.False(t, p.Allows(403))
	assert.False(t, p.Allows(500))
	assert.False(t, p.Allows(300))
}

func TestEmptySpecRejectsRedirects(t *testing.T) {
	t.Parallel()

	p := Parse("")

	assert.False(t, p.Allows(301))
	assert.False(t, p.Accepts(result.Outcome{Reachable: true, StatusCode: 301}))
}

func TestAccepts(t *testing.T) {
	t.Parallel()

	p := Parse(DefaultSpec)

	tests := []struct {
		name    string
		outcome result.Outcome
		want    bool
	}{
		{"ok", result.Outcome{Reachable: true, StatusCode: 200}, true},
		{"redirect allowed", result.Outcome{Reachable: true, StatusCode: 308}, true},
		{"not found", result.Outcome{Reachable: true, StatusCode: 404}, false},
		{"unreachable", result.Outcome{Reason: "timeout"}, false},
		{"skipped", result.Outcome{Skipped: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Accepts(tt.outcome))
		})
	}
}
