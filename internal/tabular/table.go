// Package tabular loads flat respondent-level data (CSV or the first sheet of
// a workbook) and computes cross-tabulations over it.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned by Load for extensions other than csv/xlsx/xlsm.
var ErrUnsupportedFormat = errors.New("unsupported tabular format")

// utf8BOM prefixes files saved as "CSV UTF-8" by Excel.
const utf8BOM = "\ufeff"

// Table is a header row plus data rows. Every row has len(Columns) cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Load reads a CSV or XLSX file by extension.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV reads comma-separated data. Rows may have differing lengths.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX reads the first sheet of a workbook using displayed cell values.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("no header row")
	}
	t := &Table{
		Columns: make([]string, len(rows[0])),
		Rows:    make([][]string, 0, len(rows)-1),
	}
	for i, h := range rows[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		t.Columns[i] = strings.TrimSpace(h)
	}
	for _, raw := range rows[1:] {
		row := make([]string, len(t.Columns))
		for i := range row {
			if i < len(raw) {
				row[i] = strings.TrimSpace(raw[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ColumnIndex returns the position of column name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
