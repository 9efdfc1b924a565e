// Package slug converts human-entered identifiers into tokens safe for
// HTML ids, JS selectors, file names, and SQL values.
//
// Sanitization and uniqueness are deliberately separate: two distinct
// inputs can sanitize to the same token ("Step 1" and "Step-1"), so
// callers first Make a candidate and then Claim it against a Set scoped
// to one document.
package slug

import (
	"fmt"
	"strings"
)

// Make collapses every maximal run of non-alphanumeric characters in s to a
// single underscore, trims leading/trailing underscores, prefixes "step_"
// when the result would start with a digit, and lowercases. Returns "" when
// nothing usable remains; callers fall back to a positional identifier.
//
// Make is idempotent: Make(Make(x)) == Make(x).
func Make(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if !isAlnum(r) {
			pending = true
			continue
		}
		// A leading separator run is trimmed, an interior one collapses
		// to a single underscore.
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "step_" + out
	}
	return strings.ToLower(out)
}

// Set tracks identifiers already issued within one document.
// A Set is not safe for concurrent use; each build owns its own.
type Set map[string]struct{}

// NewSet returns an empty identifier set.
func NewSet() Set {
	return make(Set)
}

// Claim returns candidate when it is still free, otherwise candidate_2,
// candidate_3, ... probing upward until an unused identifier is found.
// The returned identifier is recorded as issued.
func (s Set) Claim(candidate string) string {
	if _, taken := s[candidate]; !taken {
		s[candidate] = struct{}{}
		return candidate
	}
	for i := 2; ; i++ {
		next := fmt.Sprintf("%s_%d", candidate, i)
		if _, taken := s[next]; !taken {
			s[next] = struct{}{}
			return next
		}
	}
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
