// Package workbook loads spreadsheet sheets as typed cell grids.
package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is an open spreadsheet container. Close releases it.
type Workbook struct {
	file *excelize.File
	name string
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{file: f, name: path}, nil
}

// OpenReader opens a workbook from r. name is reported by Name.
func OpenReader(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", name, err)
	}
	return &Workbook{file: f, name: name}, nil
}

// Name returns the path or name the workbook was opened with.
func (w *Workbook) Name() string {
	return w.name
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Grid loads sheet as a grid of typed cells. Values are read raw (no number
// formatting), so a percent-formatted 0.45 stays a number while a literal
// "45%" string stays text.
func (w *Workbook) Grid(sheet string) (Grid, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	grid := make(Grid, len(rows))
	for r, row := range rows {
		cells := make([]Cell, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("cell name for (%d,%d): %w", r, c, err)
			}
			typ, err := w.file.GetCellType(sheet, axis)
			if err != nil {
				return nil, fmt.Errorf("cell type %s!%s: %w", sheet, axis, err)
			}
			cells[c] = classify(raw, typ)
		}
		grid[r] = cells
	}
	return grid, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// classify turns a raw cell value into a typed cell. String-typed cells stay
// text even when they look numeric; untyped and numeric cells become numbers
// when they parse.
func classify(raw string, typ excelize.CellType) Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError, excelize.CellTypeDate:
		return TextCell(raw)
	case excelize.CellTypeBool:
		if raw == "1" {
			return TextCell("TRUE")
		}
		if raw == "0" {
			return TextCell("FALSE")
		}
		return TextCell(raw)
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return NumberCell(n)
	}
	return TextCell(raw)
}
