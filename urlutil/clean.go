// Package urlutil provides helpers for cleaning extracted URLs and matching
// them against user supplied ignore patterns.
package urlutil

import (
	"regexp"
	"strings"
)

// trailingPunctuation is stripped from URLs found in running text, where a
// link is often followed by sentence or code punctuation.
const trailingPunctuation = "),.;:!?"

var absoluteHTTP = regexp.MustCompile(`(?i)^https?://`)

// TrimTrailingPunctuation removes any run of ) , . ; : ! ? from the end of rawURL.
func TrimTrailingPunctuation(rawURL string) string {
	return strings.TrimRight(rawURL, trailingPunctuation)
}

// IsAbsoluteHTTP reports whether rawURL starts with http:// or https://.
// Relative, protocol-relative and non-HTTP references (mailto:, tel:, ftp://)
// are rejected.
func IsAbsoluteHTTP(rawURL string) bool {
	return absoluteHTTP.MatchString(rawURL)
}
