// Package policy decides which HTTP status codes count as acceptable.
package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lukemcguire/zombielinks/result"
)

// DefaultSpec accepts success codes and the common permanent and temporary
// redirects.
const DefaultSpec = "200-299,301,302,307,308"

var (
	singleToken = regexp.MustCompile(`^\d{3}$`)
	rangeToken  = regexp.MustCompile(`^(\d{3})-(\d{3})$`)
)

// Range is a closed interval of status codes.
type Range struct {
	Low  int
	High int
}

// Contains reports whether code lies within the range, inclusive.
func (r Range) Contains(code int) bool {
	return code >= r.Low && code <= r.High
}

// String formats the range as "404" or "300-399".
func (r Range) String() string {
	if r.Low == r.High {
		return strconv.Itoa(r.Low)
	}
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// Policy is an ordered set of acceptable status ranges.
type Policy struct {
	ranges []Range
}

// Parse reads a comma-separated list of codes and low-high ranges.
// Tokens that do not parse are skipped. If nothing parses the policy
// accepts 200-299 only.
func Parse(spec string) Policy {
	var ranges []Range
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if r, ok := parseToken(token); ok {
			ranges = append(ranges, r)
		}
	}
	if len(ranges) == 0 {
		ranges = []Range{{Low: 200, High: 299}}
	}
	return Policy{ranges: ranges}
}

func parseToken(token string) (Range, bool) {
	if singleToken.MatchString(token) {
		code, _ := strconv.Atoi(token)
		return Range{Low: code, High: code}, true
	}
	m := rangeToken.FindStringSubmatch(token)
	if m == nil {
		return Range{}, false
	}
	low, _ := strconv.Atoi(m[1])
	high, _ := strconv.Atoi(m[2])
	if low > high {
		return Range{}, false
	}
	return Range{Low: low, High: high}, true
}

// Allows reports whether code falls in any range.
func (p Policy) Allows(code int) bool {
	for _, r := range p.ranges {
		if r.Contains(code) {
			return true
		}
	}
	return false
}

// Accepts reports whether a check outcome is acceptable. Skipped outcomes are
// always accepted; unreachable ones never are.
func (p Policy) Accepts(o result.Outcome) bool {
	if o.Skipped {
		return true
	}
	return o.Reachable && p.Allows(o.StatusCode)
}

// Ranges returns a copy of the parsed ranges.
func (p Policy) Ranges() []Range {
	out := make([]Range, len(p.ranges))
	copy(out, p.ranges)
	return out
}

// String formats the policy in the syntax accepted by Parse.
func (p Policy) String() string {
	parts := make([]string, len(p.ranges))
	for i, r := range p.ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
