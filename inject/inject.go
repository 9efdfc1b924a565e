// Package inject substitutes a canonical checklist document into template
// text without disturbing anything else in the blob.
//
// Every logical slot resolves independently: a declared literal marker wins
// when present; otherwise a structural pattern (an assignment to a
// well-known name, a tag pair, an element carrying a well-known id) is
// tried. A required slot with no target fails the whole injection; optional
// slots fall through untouched. Text outside matched regions is preserved
// byte-for-byte, including marker syntax this engine does not recognize.
package inject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrMissingSlot is returned when neither a marker nor a structural target
// exists for a required slot. No output is produced.
var ErrMissingSlot = errors.New("inject: no target for required slot")

// ErrAmbiguousTarget is returned when a structural pattern matches more
// than once and the substitution cannot be resolved unambiguously.
var ErrAmbiguousTarget = errors.New("inject: ambiguous structural target")

// Slot is one named injection target.
type Slot struct {
	Name     string
	Marker   string // exact literal token; empty for structural-only slots
	Target   Target // structural fallback; zero value for marker-only slots
	Value    string // replacement text, already serialized
	JSON     bool   // value is a JSON literal; HTML sanitization never applies
	Required bool
}

// Via values reported per slot.
const (
	ViaMarker  = "marker"
	ViaPattern = "pattern"
	ViaSkipped = "skipped"
)

// Outcome records how one slot resolved.
type Outcome struct {
	Slot string `json:"slot"`
	Via  string `json:"via"`
}

// Injector applies slots to template text.
type Injector struct {
	policy *bluemonday.Policy
}

// New returns an Injector. Unless rawScalars is set, non-JSON slot values
// pass through a strict HTML sanitization policy (tags stripped, entities
// escaped) before insertion, since they land in HTML contexts.
func New(rawScalars bool) *Injector {
	in := &Injector{}
	if !rawScalars {
		in.policy = bluemonday.StrictPolicy()
	}
	return in
}

// Apply resolves every slot against template, in order, and returns the
// final text plus a per-slot outcome report. A fatal slot aborts with no
// partial result: markers replace all occurrences, structural patterns
// must match exactly once.
func (in *Injector) Apply(template string, slots []Slot) (string, []Outcome, error) {
	text := template
	outcomes := make([]Outcome, 0, len(slots))

	for _, s := range slots {
		if s.Marker != "" && strings.Contains(text, s.Marker) {
			text = strings.ReplaceAll(text, s.Marker, in.render(s))
			outcomes = append(outcomes, Outcome{Slot: s.Name, Via: ViaMarker})
			continue
		}
		if s.Target.re != nil {
			locs := s.Target.re.FindAllStringSubmatchIndex(text, -1)
			if len(locs) > 1 {
				return "", nil, fmt.Errorf("%w: %d occurrences of %s for slot %q",
					ErrAmbiguousTarget, len(locs), s.Target, s.Name)
			}
			if len(locs) == 1 {
				// Indices 4:5 delimit the value capture group; prefix and
				// suffix groups stay untouched.
				m := locs[0]
				text = text[:m[4]] + in.render(s) + text[m[5]:]
				outcomes = append(outcomes, Outcome{Slot: s.Name, Via: ViaPattern})
				continue
			}
		}
		if s.Required {
			return "", nil, fmt.Errorf("%w %q", ErrMissingSlot, s.Name)
		}
		outcomes = append(outcomes, Outcome{Slot: s.Name, Via: ViaSkipped})
	}
	return text, outcomes, nil
}

func (in *Injector) render(s Slot) string {
	if s.JSON || in.policy == nil {
		return s.Value
	}
	return in.policy.Sanitize(s.Value)
}
