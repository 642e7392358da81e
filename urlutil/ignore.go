package urlutil

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// singleWildcard matches a run of characters that can appear inside a URL
	// embedded in markup: no whitespace, quotes or angle brackets.
	singleWildcard = `[^\s"'<>]*`
	// doubleWildcard matches anything, whitespace included.
	doubleWildcard = `.*`
)

// IgnoreMatcher holds compiled ignore patterns. The zero value and a nil
// pointer both match nothing.
type IgnoreMatcher struct {
	patterns []*regexp.Regexp
}

// CompileIgnore compiles wildcard patterns into an IgnoreMatcher.
// Blank patterns are dropped.
func CompileIgnore(patterns []string) (*IgnoreMatcher, error) {
	matcher := &IgnoreMatcher{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := WildcardToRegexp(pattern)
		if err != nil {
			return nil, err
		}
		matcher.patterns = append(matcher.patterns, re)
	}
	return matcher, nil
}

// WildcardToRegexp converts a wildcard pattern into an anchored,
// case-insensitive regular expression.
//
// `**` matches any characters, `*` matches any run of characters except
// whitespace, quotes and angle brackets. Everything else, `?` included, is
// matched literally.
func WildcardToRegexp(pattern string) (*regexp.Regexp, error) {
	var expr strings.Builder
	expr.WriteString(`(?is)^`)
	for i, segment := range strings.Split(pattern, "**") {
		if i > 0 {
			expr.WriteString(doubleWildcard)
		}
		for j, literal := range strings.Split(segment, "*") {
			if j > 0 {
				expr.WriteString(singleWildcard)
			}
			expr.WriteString(regexp.QuoteMeta(literal))
		}
	}
	expr.WriteString(`$`)

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("compile ignore pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Match reports whether rawURL matches at least one ignore pattern.
func (m *IgnoreMatcher) Match(rawURL string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
