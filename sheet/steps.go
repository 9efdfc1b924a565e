package sheet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chkforge/chkforge/checklist"
	"github.com/chkforge/chkforge/slug"
)

// StepOptions tunes step-sheet extraction. Zero values fall back to the
// documented thresholds.
type StepOptions struct {
	Vocab       Vocabulary // nil → StepVocabulary()
	ScanWindow  int        // header-row search depth (default 30)
	MinHits     int        // canonical hits required to trust a header row (default 3)
	BlankStreak int        // consecutive blank rows ending the table (default 10)
}

func (o *StepOptions) defaults() {
	if o.Vocab == nil {
		o.Vocab = StepVocabulary()
	}
	if o.ScanWindow <= 0 {
		o.ScanWindow = 30
	}
	if o.MinHits <= 0 {
		o.MinHits = 3
	}
	if o.BlankStreak <= 0 {
		o.BlankStreak = 10
	}
}

// ExtractSteps reads a steps sheet into an ordered StepList.
//
// The scanner locates the column-header row; without one the sheet is
// structurally unreadable and ErrNoHeaderRow is returned. Data rows follow
// until BlankStreak consecutive fully-blank rows end the table. A few
// blank spacer rows inside real data are tolerated; runaway scanning over
// trailing empty sheet space is not. Fully-blank rows are skipped, never
// recorded.
//
// Per-row policy: order parses from the order column, falling back to the
// 1-based position among rows read so far; ids sanitize through slug.Make
// with a step_<order> fallback and per-document uniqueness; command and
// reminder assemble from their labeled sub-fields. The result is stable
// sorted ascending by order, so equal orders keep sheet order.
func ExtractSteps(rs *RawSheet, opts StepOptions) (checklist.StepList, error) {
	opts.defaults()
	rows := rs.Rows

	hdr, ok := FindHeaderRow(rows, opts.Vocab, opts.ScanWindow, opts.MinHits)
	if !ok {
		return nil, fmt.Errorf("sheet %q: %w", rs.Name, ErrNoHeaderRow)
	}

	// First column claiming a canonical key wins; later duplicates are
	// ignored rather than shadowing earlier data.
	cols := make(map[string]int)
	for j, h := range rows[hdr] {
		if canon, ok := opts.Vocab.Resolve(h); ok {
			if _, taken := cols[canon]; !taken {
				cols[canon] = j
			}
		}
	}

	steps := checklist.StepList{}
	ids := slug.NewSet()
	streak := 0

	for _, row := range rows[hdr+1:] {
		if blankRow(row) {
			streak++
			if streak >= opts.BlankStreak {
				break
			}
			continue
		}
		streak = 0

		get := func(key string) string {
			j, ok := cols[key]
			if !ok {
				return ""
			}
			return cell(row, j)
		}

		order := parseOrder(get("order"), len(steps)+1)

		id := slug.Make(get("id"))
		if id == "" {
			id = fmt.Sprintf("step_%d", order)
		}
		id = ids.Claim(id)

		title := get("title")
		if title == "" {
			title = fmt.Sprintf("Step %d", order)
		}

		steps = append(steps, checklist.StepRecord{
			ID:       id,
			Order:    order,
			Title:    title,
			Command:  assembleCommand(get),
			Reminder: assembleReminder(get),
			Notes:    get("notes"),
			Done:     Boolish(get("done")),
			Runs:     []checklist.RunEntry{},
		})
	}

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps, nil
}

// assembleCommand joins the command cell and its labeled sub-fields with
// blank lines. Empty sub-fields contribute nothing.
func assembleCommand(get func(string) string) string {
	var parts []string
	if v := get("command"); v != "" {
		parts = append(parts, v)
	}
	if v := get("program"); v != "" {
		parts = append(parts, "[Program] "+v)
	}
	if v := get("variants"); v != "" {
		parts = append(parts, "[Variants] "+v)
	}
	return strings.Join(parts, "\n\n")
}

// assembleReminder joins the reminder cell and its labeled sub-fields with
// " | " in a fixed order: Inputs, OutFile, OutFolder, Hints, Phase.
func assembleReminder(get func(string) string) string {
	var parts []string
	if v := get("reminder"); v != "" {
		parts = append(parts, v)
	}
	for _, f := range []struct{ key, label string }{
		{"input", "Inputs: "},
		{"outFile", "OutFile: "},
		{"outFolder", "OutFolder: "},
		{"hints", "Hints: "},
		{"phase", "Phase: "},
	} {
		if v := get(f.key); v != "" {
			parts = append(parts, f.label+v)
		}
	}
	return strings.Join(parts, " | ")
}

// parseOrder reads an order cell as an integer. Spreadsheets hand numeric
// cells over as "2" or "2.0" depending on formatting; a trailing ".0" is
// stripped before parsing. Blank or unparseable cells fall back.
func parseOrder(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	raw = strings.TrimSuffix(raw, ".0")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
