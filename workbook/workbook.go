// Package workbook reads XLSX spec workbooks into raw sheet grids.
//
// The loader stays deliberately dumb: every sheet comes back as a
// trimmed string grid and all interpretation is left to the sheet
// package. Formulas surface as their cached results, numbers as their
// formatted text.
package workbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/chkforge/chkforge/sheet"
)

// Workbook is an open XLSX archive.
type Workbook struct {
	f *excelize.File
}

// Open reads the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	return &Workbook{f: f}, nil
}

// OpenReader reads a workbook from r.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("workbook: open reader: %w", err)
	}
	return &Workbook{f: f}, nil
}

// Close releases the underlying archive.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// Pick resolves the first candidate naming an existing sheet,
// case-insensitively. When two sheets collide under lowercasing the
// later one wins.
func (w *Workbook) Pick(candidates ...string) (string, bool) {
	existing := make(map[string]string)
	for _, name := range w.Sheets() {
		existing[strings.ToLower(name)] = name
	}
	for _, c := range candidates {
		if name, ok := existing[strings.ToLower(c)]; ok {
			return name, true
		}
	}
	return "", false
}

// Sheet returns the named sheet with every cell whitespace-trimmed.
// Rows keep excelize's ragged shape: trailing empty cells are dropped,
// so rows differ in length.
func (w *Workbook) Sheet(name string) (sheet.RawSheet, error) {
	rows, err := w.f.GetRows(name)
	if err != nil {
		return sheet.RawSheet{}, fmt.Errorf("workbook: sheet %s: %w", name, err)
	}
	for _, row := range rows {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}
	return sheet.RawSheet{Name: name, Rows: rows}, nil
}
