package inject

import "regexp"

// Target locates the value region of one structural pattern. Every pattern
// captures three groups: prefix, value, suffix; only the value region is
// ever replaced, so the surrounding syntax survives byte-for-byte. The zero
// Target matches nothing and marks a marker-only slot.
//
// The closed set of constructors below is the full vocabulary of
// recognizable shapes; new shapes extend this file, not the injection
// control flow.
type Target struct {
	re   *regexp.Regexp
	desc string
}

func (t Target) String() string { return t.desc }

// AssignList matches `let <name> = [ ... ];` with a non-greedy body.
func AssignList(name string) Target {
	q := regexp.QuoteMeta(name)
	return Target{
		re:   regexp.MustCompile(`(\blet\s+` + q + `\s*=\s*)(\[[\s\S]*?\])(\s*;)`),
		desc: "let " + name + " = [...];",
	}
}

// AssignObject matches `let <name> = { ... };` with a non-greedy body.
func AssignObject(name string) Target {
	q := regexp.QuoteMeta(name)
	return Target{
		re:   regexp.MustCompile(`(\blet\s+` + q + `\s*=\s*)(\{[\s\S]*?\})(\s*;)`),
		desc: "let " + name + " = {...};",
	}
}

// TagPair matches the inner text of <tag>...</tag>, case-insensitively,
// across newlines.
func TagPair(tag string) Target {
	q := regexp.QuoteMeta(tag)
	return Target{
		re:   regexp.MustCompile(`(?is)(<` + q + `>)(.*?)(</` + q + `>)`),
		desc: "<" + tag + ">",
	}
}

// ElementText matches the inner text of a tag element carrying a literal
// id attribute, case-insensitively, across newlines.
func ElementText(tag, id string) Target {
	qt, qi := regexp.QuoteMeta(tag), regexp.QuoteMeta(id)
	return Target{
		re:   regexp.MustCompile(`(?is)(<` + qt + `[^>]*\bid="` + qi + `"[^>]*>)(.*?)(</` + qt + `>)`),
		desc: "<" + tag + ` id="` + id + `">`,
	}
}
