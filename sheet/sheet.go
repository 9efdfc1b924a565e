// Package sheet locates and extracts header metadata and step tables from
// loosely structured spreadsheet rows.
//
// Real spec workbooks are never tidy: banner rows sit above the actual
// column headers, column names drift between authors, blank spacer rows
// interrupt data, and sheets trail off into empty space. The extractors
// here tolerate all of that with bounded scanning heuristics instead of
// fixed offsets, and absorb cell-level anomalies into defaults rather than
// errors. Only the structural absence of a recognizable header row is
// reported, via ErrNoHeaderRow.
package sheet

import (
	"errors"
	"strings"
)

// ErrNoHeaderRow is returned when no row within the scan window resolves
// enough canonical column names to be trusted as a header.
var ErrNoHeaderRow = errors.New("sheet: no recognizable header row")

// RawSheet is one sheet's cells as loaded: ordered rows of trimmed strings.
// Rows may be ragged; a row can be shorter than the rows around it. A
// RawSheet is read-only after construction.
type RawSheet struct {
	Name string
	Rows [][]string
}

// cell returns the trimmed cell at column j of row, or "" when the row is
// too short.
func cell(row []string, j int) string {
	if j < 0 || j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}

// normLower trims and lowercases for synonym and label comparisons.
func normLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// blankRow reports whether every cell of row is blank. An empty row slice
// counts as blank.
func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Boolish interprets spreadsheet truthiness. Affirmatives are y, yes, true,
// 1, done, complete, completed (case-insensitive); everything else,
// including blank, is false.
func Boolish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "done", "complete", "completed":
		return true
	}
	return false
}
