package banner

import (
	"path/filepath"
	"testing"

	"github.com/hyperjump/crosstab/internal/workbook"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// rows of a typical banner report: two demographic groups plus a total
// column, two questions and an indices block.
func reportRows() [][]interface{} {
	return [][]interface{}{
		{"Member Survey 2024"},
		{nil, nil, "Region", nil, "Age", nil},
		{nil, "TOTAL", "North", "South", "18-34\n-----\nsub", "35+"},
		{nil, "(A)", "(B)", "(C)", "(D)", "(E)"},
		{"Q1. How satisfied are you?"},
		{"Base", 100, 50, 50, 40, 60},
		{"Satisfied", "45%", "50%", "40%", 0.5, 0.4},
		{"----"},
		{"Dissatisfied", 55, 25, 30, 20, 35},
		{"Empty row"},
		{"Q2. Would you recommend us?"},
		{"Yes", 60, 30, 30, "n/a", "36"},
		{"SUBSAMPLE", 10, 5, 5, 4, 6},
		{"INDICES TABLE"},
		{"Comparison Groups"},
		{},
		{},
		{},
		{"Satisfaction Index", 72.5, 70, 75, 68, 77},
		{"Total Index", 1, 1, 1, 1, 1},
		{"SUBSAMPLE", 100, 50, 50, 40, 60},
		{"Other metric", 1, 2, 3, 4, 5},
	}
}

// grid converts fixture rows to an in-memory grid.
func grid(rows [][]interface{}) workbook.Grid {
	g := make(workbook.Grid, len(rows))
	for r, row := range rows {
		cells := make([]workbook.Cell, len(row))
		for c, v := range row {
			switch x := v.(type) {
			case string:
				cells[c] = workbook.TextCell(x)
			case int:
				cells[c] = workbook.NumberCell(float64(x))
			case float64:
				cells[c] = workbook.NumberCell(x)
			}
		}
		g[r] = cells
	}
	return g
}

type sheetFixture struct {
	name string
	rows [][]interface{}
}

// writeWorkbook saves the sheets, in order, to an xlsx file under t.TempDir.
func writeWorkbook(t *testing.T, sheets ...sheetFixture) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(s.name, axis, v))
			}
		}
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}
